package cmd

import (
	"testing"

	"github.com/vibast-solutions/ms-go-sponsorships/app/provider"
	"github.com/vibast-solutions/ms-go-sponsorships/config"
)

func testConfig(enabled ...string) *config.Config {
	return &config.Config{
		App: config.AppConfig{PublicBaseURL: "https://api.example.com", FrontendURL: "https://example.com"},
		Orders: config.OrdersConfig{
			Currency: "TWD",
		},
		Providers: config.ProvidersConfig{
			Enabled: enabled,
			ECPay:   config.ECPayConfig{MerchantID: "2000132", HashKey: "5294y06JbISpM5x9", HashIV: "v77hoKGq4kWxNNIS"},
			Stablecoin: config.StablecoinConfig{
				TRC20Address: "TXYZ1234567890",
				Disabled:     []string{"erc20"},
			},
		},
	}
}

func TestBuildProviderRegistryKeepsConfiguredOrder(t *testing.T) {
	registry, err := buildProviderRegistry(testConfig("usdt_trc20", "ecpay", "newebpay", "ecpay", "speedpay", "usdt_erc20"), nil)
	if err != nil {
		t.Fatalf("buildProviderRegistry() error = %v", err)
	}
	codes := make([]string, 0)
	for _, p := range registry.All() {
		codes = append(codes, p.Code())
	}
	want := []string{"usdt_trc20", "ecpay", "newebpay", "speedpay", "usdt_erc20"}
	if len(codes) != len(want) {
		t.Fatalf("expected %v, got %v", want, codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, codes)
		}
	}

	erc20, err := registry.Get(provider.CodeUSDTERC20)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	for _, m := range erc20.Methods() {
		if m.Enabled {
			t.Fatalf("expected ERC20 method disabled")
		}
	}
}

func TestBuildProviderRegistryRejectsUnknownProvider(t *testing.T) {
	if _, err := buildProviderRegistry(testConfig("ecpay", "paypal"), nil); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
