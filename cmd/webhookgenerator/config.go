package main

type config struct {
	Endpoint   string   `mapstructure:"endpoint"`
	Secret     string   `mapstructure:"secret"`
	ShopDomain string   `mapstructure:"shop_domain"`
	Topic      string   `mapstructure:"topic"`
	Email      string   `mapstructure:"email"`
	FirstName  string   `mapstructure:"first_name"`
	LastName   string   `mapstructure:"last_name"`
	SKUs       []string `mapstructure:"skus"`
	Interval   string   `mapstructure:"interval"`
}
