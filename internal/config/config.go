package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fr0stylo/shoptag/internal/tagging"
	"github.com/fr0stylo/shoptag/internal/upstream"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Shopify       ShopifyConfig
	Upstream      UpstreamConfig
	Tagging       TaggingConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port        int
	WebhookPath string
}

type ShopifyConfig struct {
	WebhookSecret string
	ShopDomain    string
	DeliveryMode  string
}

type UpstreamConfig struct {
	APIKey          string
	APIKeyHeader    string
	BaseURLs        []string
	RoutePrefixes   []string
	FallbackFormID  string
	TimeoutMS       int
	MaxRetries      int
	RetryDelayMS    int
	MaxRetryDelayMS int
}

type TaggingConfig struct {
	SKUTags         tagging.Mapping
	CacheRedisURL   string
	CacheTTLSeconds int
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
	MetricsIntervalS  int
}

const (
	localWebhookSecret = "shoptag-local-dev"
	localShopDomain    = "shoptag-dev.myshopify.com"
)

func Load() (Config, error) {
	return load(true)
}

// LoadForTool loads config for CLI tools that never receive webhooks.
func LoadForTool() (Config, error) {
	return load(false)
}

func load(requireWebhookSecrets bool) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("shoptag_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("shoptag_port", 8080)
	v.SetDefault("shoptag_webhook_path", "/webhooks/shopify/orders-paid")
	v.SetDefault("shopify_webhook_secret", "")
	v.SetDefault("shopify_shop_domain", "")
	v.SetDefault("shoptag_delivery_mode", "absorb")
	v.SetDefault("kit_api_key", "")
	v.SetDefault("kit_api_key_header", upstream.DefaultAPIKeyHeader)
	v.SetDefault("kit_base_url", upstream.DefaultBaseURL)
	v.SetDefault("kit_alternate_base_urls", "")
	v.SetDefault("kit_fallback_form_id", "")
	v.SetDefault("sku_tag_map", "{}")
	v.SetDefault("shoptag_upstream_timeout_ms", 10000)
	v.SetDefault("shoptag_upstream_max_retries", 2)
	v.SetDefault("shoptag_upstream_retry_delay_ms", 1000)
	v.SetDefault("shoptag_upstream_max_retry_delay_ms", 10000)
	v.SetDefault("shoptag_tag_cache_redis_url", "")
	v.SetDefault("shoptag_tag_cache_ttl_seconds", 3600)
	v.SetDefault("shoptag_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "shoptag")
	v.SetDefault("shoptag_service_name", "shoptag")
	v.SetDefault("shoptag_version", "dev")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("shoptag_otel_sampling_ratio", 1.0)
	v.SetDefault("shoptag_otel_metrics_console", false)
	v.SetDefault("shoptag_otel_metrics_interval_seconds", 10)

	env := resolveEnvironment(v)
	port := v.GetInt("shoptag_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid SHOPTAG_PORT: %d", port)
	}

	webhookPath := strings.TrimSpace(v.GetString("shoptag_webhook_path"))
	if !strings.HasPrefix(webhookPath, "/") {
		webhookPath = "/" + webhookPath
	}

	samplingRatio := v.GetFloat64("shoptag_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	mapping, err := tagging.ParseMapping(v.GetString("sku_tag_map"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SKU_TAG_MAP: %w", err)
	}

	baseURLs := []string{strings.TrimRight(strings.TrimSpace(v.GetString("kit_base_url")), "/")}
	if baseURLs[0] == "" {
		baseURLs[0] = upstream.DefaultBaseURL
	}
	baseURLs = append(baseURLs, splitList(v.GetString("kit_alternate_base_urls"))...)

	var prefixes []string
	if v.IsSet("kit_route_prefixes") {
		prefixes = upstream.NormalizePrefixes(strings.Split(v.GetString("kit_route_prefixes"), ","))
	}

	apiKeyHeader := strings.TrimSpace(v.GetString("kit_api_key_header"))
	if apiKeyHeader == "" {
		apiKeyHeader = upstream.DefaultAPIKeyHeader
	}

	serviceName := strings.TrimSpace(v.GetString("otel_service_name"))
	if serviceName == "" {
		serviceName = strings.TrimSpace(v.GetString("shoptag_service_name"))
	}
	if serviceName == "" {
		serviceName = "shoptag"
	}

	serviceVersion := strings.TrimSpace(v.GetString("shoptag_version"))
	if serviceVersion == "" {
		serviceVersion = strings.TrimSpace(v.GetString("otel_service_version"))
	}
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("shoptag_otel_metrics_console")
	otelEnabled := v.GetBool("shoptag_otel_enabled") || otlpEndpoint != "" || metricsConsole

	cfg := Config{
		Environment: env,
		Server: ServerConfig{
			Port:        port,
			WebhookPath: webhookPath,
		},
		Shopify: ShopifyConfig{
			WebhookSecret: strings.TrimSpace(v.GetString("shopify_webhook_secret")),
			ShopDomain:    strings.TrimSpace(v.GetString("shopify_shop_domain")),
			DeliveryMode:  strings.ToLower(strings.TrimSpace(v.GetString("shoptag_delivery_mode"))),
		},
		Upstream: UpstreamConfig{
			APIKey:          strings.TrimSpace(v.GetString("kit_api_key")),
			APIKeyHeader:    apiKeyHeader,
			BaseURLs:        baseURLs,
			RoutePrefixes:   prefixes,
			FallbackFormID:  strings.TrimSpace(v.GetString("kit_fallback_form_id")),
			TimeoutMS:       clamp(v.GetInt("shoptag_upstream_timeout_ms"), 100, 60000, 10000),
			MaxRetries:      clamp(v.GetInt("shoptag_upstream_max_retries"), 0, 5, 2),
			RetryDelayMS:    clamp(v.GetInt("shoptag_upstream_retry_delay_ms"), 0, 30000, 1000),
			MaxRetryDelayMS: clamp(v.GetInt("shoptag_upstream_max_retry_delay_ms"), 100, 120000, 10000),
		},
		Tagging: TaggingConfig{
			SKUTags:         mapping,
			CacheRedisURL:   strings.TrimSpace(v.GetString("shoptag_tag_cache_redis_url")),
			CacheTTLSeconds: clamp(v.GetInt("shoptag_tag_cache_ttl_seconds"), 0, 7*24*3600, 3600),
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders),
			OTLPMetricHeaders: mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders),
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
			MetricsIntervalS:  clamp(v.GetInt("shoptag_otel_metrics_interval_seconds"), 1, 300, 10),
		},
	}

	if !cfg.IsLocalDevelopment() && cfg.Upstream.APIKey == "" {
		return Config{}, fmt.Errorf("KIT_API_KEY is required outside local/dev environments")
	}
	if requireWebhookSecrets && !cfg.IsLocalDevelopment() {
		if cfg.Shopify.WebhookSecret == "" {
			return Config{}, fmt.Errorf("SHOPIFY_WEBHOOK_SECRET is required outside local/dev environments")
		}
		if cfg.Shopify.ShopDomain == "" {
			return Config{}, fmt.Errorf("SHOPIFY_SHOP_DOMAIN is required outside local/dev environments")
		}
	}
	if cfg.IsLocalDevelopment() {
		if cfg.Shopify.WebhookSecret == "" {
			cfg.Shopify.WebhookSecret = localWebhookSecret
		}
		if cfg.Shopify.ShopDomain == "" {
			cfg.Shopify.ShopDomain = localShopDomain
		}
	}

	return cfg, nil
}

func clamp(value, minValue, maxValue, fallback int) int {
	if value < minValue {
		return fallback
	}
	if value > maxValue {
		return maxValue
	}
	return value
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pair := strings.SplitN(part, "=", 2)
		if len(pair) != 2 {
			continue
		}
		key := strings.TrimSpace(pair[0])
		value := strings.TrimSpace(pair[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// IsLocalDevelopment reports whether the environment was explicitly named as a
// local one. An unset environment is treated as production.
func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutMS) * time.Millisecond
}

func (c Config) UpstreamRetryDelay() time.Duration {
	return time.Duration(c.Upstream.RetryDelayMS) * time.Millisecond
}

func (c Config) UpstreamMaxRetryDelay() time.Duration {
	return time.Duration(c.Upstream.MaxRetryDelayMS) * time.Millisecond
}

func (c Config) MetricsInterval() time.Duration {
	return time.Duration(c.Observability.MetricsIntervalS) * time.Second
}

func (c Config) TagCacheTTL() time.Duration {
	return time.Duration(c.Tagging.CacheTTLSeconds) * time.Second
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"shoptag_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
