package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fr0stylo/shoptag/pkg/orderpublisher"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	interval, _ := time.ParseDuration(cfg.Interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	client := orderpublisher.Client{
		Endpoint:   cfg.Endpoint,
		Secret:     cfg.Secret,
		ShopDomain: cfg.ShopDomain,
		Topic:      cfg.Topic,
		Timeout:    10 * time.Second,
	}
	for sequence := 1; ; sequence++ {
		if err := sendOrder(client, cfg, sequence); err != nil {
			fmt.Fprintln(os.Stderr, "webhook error:", err)
		}
		<-ticker.C
	}
}

func loadConfig(path string) (config, error) {
	if strings.TrimSpace(path) == "" {
		return config{}, fmt.Errorf("config path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Secret = strings.TrimSpace(cfg.Secret)
	cfg.ShopDomain = strings.TrimSpace(cfg.ShopDomain)
	cfg.Topic = strings.TrimSpace(cfg.Topic)
	cfg.Email = strings.TrimSpace(cfg.Email)
	cfg.Interval = strings.TrimSpace(cfg.Interval)

	if cfg.Endpoint == "" || cfg.Secret == "" || cfg.ShopDomain == "" || cfg.Email == "" {
		return config{}, fmt.Errorf("config must include endpoint, secret, shop_domain, email")
	}
	if cfg.Interval == "" {
		return config{}, fmt.Errorf("interval must be provided")
	}

	parsed, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return config{}, fmt.Errorf("invalid interval duration: %w", err)
	}
	if parsed <= 0 {
		return config{}, fmt.Errorf("interval must be positive")
	}

	return cfg, nil
}

// sendOrder delivers one order. An email containing "%d" gets a sequence
// number so repeated runs can create distinct contacts.
func sendOrder(client orderpublisher.Client, cfg config, sequence int) error {
	email := cfg.Email
	if strings.Contains(email, "%d") {
		email = fmt.Sprintf(email, sequence)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	receipt, err := client.Publish(ctx, orderpublisher.Order{
		Email:     email,
		FirstName: cfg.FirstName,
		LastName:  cfg.LastName,
		SKUs:      cfg.SKUs,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Webhook status: %d (webhook %s) %s\n", receipt.StatusCode, receipt.WebhookID, receipt.Body)
	return nil
}
