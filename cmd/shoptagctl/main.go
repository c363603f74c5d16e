package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/shoptag/internal/config"
	"github.com/fr0stylo/shoptag/internal/tagging"
	"github.com/fr0stylo/shoptag/internal/upstream"
	"github.com/fr0stylo/shoptag/internal/webhooks/shopify"
	"github.com/fr0stylo/shoptag/pkg/orderpublisher"
)

const usage = `usage: shoptagctl <command> [flags]

commands:
  resolve-tags   resolve every SKU_TAG_MAP entry to an upstream tag id
  sign           print the Shopify signature header for a body
  publish        send a signed orders/paid webhook to a receiver`

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded:", err)
	}
	if len(os.Args) < 2 {
		exitErr(usage)
	}

	var err error
	switch os.Args[1] {
	case "resolve-tags":
		err = runResolveTags(os.Args[2:], os.Stdout)
	case "sign":
		err = runSign(os.Args[2:], os.Stdin, os.Stdout)
	case "publish":
		err = runPublish(os.Args[2:], os.Stdout)
	default:
		err = fmt.Errorf("unknown command %q\n%s", os.Args[1], usage)
	}
	if err != nil {
		exitErr(err.Error())
	}
}

func runResolveTags(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("resolve-tags", flag.ContinueOnError)
	timeout := flags.Duration("timeout", 2*time.Minute, "overall timeout")
	verbose := flags.Bool("v", false, "log upstream attempts")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadForTool()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	gateway := upstream.New(upstream.Config{
		Routes:        upstream.Routes{BaseURLs: cfg.Upstream.BaseURLs, Prefixes: cfg.Upstream.RoutePrefixes},
		APIKey:        cfg.Upstream.APIKey,
		APIKeyHeader:  cfg.Upstream.APIKeyHeader,
		Timeout:       cfg.UpstreamTimeout(),
		MaxRetries:    cfg.Upstream.MaxRetries,
		RetryDelay:    cfg.UpstreamRetryDelay(),
		MaxRetryDelay: cfg.UpstreamMaxRetryDelay(),
		Logger:        log,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var cache tagging.Cache = tagging.NewMemoryCache()
	if cfg.Tagging.CacheRedisURL != "" {
		redisCache, err := tagging.OpenRedisCache(ctx, cfg.Tagging.CacheRedisURL, cfg.TagCacheTTL(), log)
		if err != nil {
			return fmt.Errorf("open tag cache: %w", err)
		}
		defer redisCache.Close()
		cache = redisCache
	}

	return resolveTags(ctx, tagging.NewResolver(gateway, cache, log), cfg.Tagging.SKUTags, out)
}

type tagResolver interface {
	Resolve(ctx context.Context, spec tagging.Spec) (int64, error)
}

func resolveTags(ctx context.Context, resolver tagResolver, mapping tagging.Mapping, out io.Writer) error {
	if len(mapping) == 0 {
		return fmt.Errorf("SKU_TAG_MAP is empty")
	}
	failures := 0
	for _, sku := range mapping.SKUs() {
		spec, _ := mapping.Lookup(sku)
		id, err := resolver.Resolve(ctx, spec)
		if err != nil {
			failures++
			fmt.Fprintf(out, "%s\t%s\terror: %v\n", sku, spec, err)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%d\n", sku, spec, id)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d mappings failed to resolve", failures, len(mapping))
	}
	return nil
}

func runSign(args []string, in io.Reader, out io.Writer) error {
	flags := flag.NewFlagSet("sign", flag.ContinueOnError)
	secret := flags.String("secret", os.Getenv("SHOPIFY_WEBHOOK_SECRET"), "webhook secret (or SHOPIFY_WEBHOOK_SECRET)")
	file := flags.String("file", "", "body file (default stdin)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*secret) == "" {
		return fmt.Errorf("secret is required (or set SHOPIFY_WEBHOOK_SECRET)")
	}

	var body []byte
	var err error
	if *file != "" {
		body, err = os.ReadFile(*file)
	} else {
		body, err = io.ReadAll(in)
	}
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	fmt.Fprintln(out, shopify.Sign([]byte(strings.TrimSpace(*secret)), body))
	return nil
}

func runPublish(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("publish", flag.ContinueOnError)
	endpoint := flags.String("endpoint", "http://localhost:8080/webhooks/shopify/orders-paid", "receiver webhook URL")
	secret := flags.String("secret", os.Getenv("SHOPIFY_WEBHOOK_SECRET"), "webhook secret (or SHOPIFY_WEBHOOK_SECRET)")
	shop := flags.String("shop", os.Getenv("SHOPIFY_SHOP_DOMAIN"), "shop domain (or SHOPIFY_SHOP_DOMAIN)")
	topic := flags.String("topic", shopify.TopicOrdersPaid, "webhook topic")
	email := flags.String("email", "", "purchaser email")
	firstName := flags.String("first-name", "", "purchaser first name (optional)")
	lastName := flags.String("last-name", "", "purchaser last name (optional)")
	skus := flags.String("skus", "", "comma separated line item SKUs")
	timeout := flags.Duration("timeout", 30*time.Second, "request timeout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var lineItems []string
	for _, sku := range strings.Split(*skus, ",") {
		if sku = strings.TrimSpace(sku); sku != "" {
			lineItems = append(lineItems, sku)
		}
	}

	client := orderpublisher.Client{
		Endpoint:   *endpoint,
		Secret:     *secret,
		ShopDomain: *shop,
		Topic:      *topic,
		Timeout:    *timeout,
	}
	receipt, err := client.Publish(context.Background(), orderpublisher.Order{
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
		SKUs:      lineItems,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Published webhook %s: %d %s\n", receipt.WebhookID, receipt.StatusCode, receipt.Body)
	return nil
}

func exitErr(message string) {
	fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}
