package config

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-engine/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// Validate must have passed; unparsable procurement values fall back to zero.
func (c *Config) ToContainerConfig() *container.Config {
	amount, _ := c.Procurement.doubleValidationAmount()
	sites, _ := c.Procurement.siteWarehouses()

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Lock: container.LockConfig{
			Driver:        c.Lock.Driver,
			RedisAddr:     c.Lock.RedisAddr,
			RedisPassword: c.Lock.RedisPassword,
			RedisDB:       c.Lock.RedisDB,
			TTL:           c.Lock.TTL,
			Wait:          c.Lock.Wait,
		},
		Lark: container.LarkConfig{
			Enabled:         c.Lark.Enabled,
			AppID:           c.Lark.AppID,
			AppSecret:       c.Lark.AppSecret,
			BaseURL:         c.Lark.BaseURL,
			ApproversOpenID: c.Lark.ApproversOpenID,
		},
		Storage: container.StorageConfig{
			ExportDir: c.Export.Dir,
		},
		Procurement: container.ProcurementConfig{
			TwoStepValidation:      c.Procurement.TwoStepValidation,
			DoubleValidationAmount: amount,
			ManagerGroupID:         c.Procurement.ManagerGroupID,
			AutoSubscribeVendor:    c.Procurement.AutoSubscribeVendor,
			SiteWarehouses:         sites,
		},
		Server: container.ServerConfig{
			Host:             c.Server.Host,
			Port:             c.Server.Port,
			ReadTimeout:      c.Server.ReadTimeout,
			WriteTimeout:     c.Server.WriteTimeout,
			AllowedOrigins:   c.Server.AllowedOrigins,
			AuthEnabled:      c.Auth.Enabled,
			JWTSecret:        c.Auth.JWTSecret,
			TokenTTL:         c.Auth.TokenTTL,
			RateLimitEnabled: c.RateLimit.Enabled,
			RateLimit:        c.RateLimit.Rate,
		},
	}
}

func (p ProcurementConfig) doubleValidationAmount() (decimal.Decimal, error) {
	if p.DoubleValidationAmount == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(p.DoubleValidationAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("procurement.double_validation_amount: %w", err)
	}
	return amount, nil
}

func (p ProcurementConfig) siteWarehouses() (map[int64]int64, error) {
	sites := make(map[int64]int64, len(p.SiteWarehouses))
	for key, warehouseID := range p.SiteWarehouses {
		siteID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("procurement.site_warehouses: invalid site id %q", key)
		}
		sites[siteID] = warehouseID
	}
	return sites, nil
}
