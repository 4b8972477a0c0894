package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vistalink/screen-setup/internal/api/http"
)

type Config struct {
	Log        LogConfig
	Portal     http.Config      `mapstructure:"portal"`
	AP         APConfig         `mapstructure:"ap"`
	Radio      RadioConfig      `mapstructure:"radio"`
	DNS        DNSConfig        `mapstructure:"dns"`
	Flow       FlowConfig       `mapstructure:"flow"`
	Activation ActivationConfig `mapstructure:"activation"`
	Paths      PathsConfig      `mapstructure:"paths"`
}

type APConfig struct {
	SSID       string `mapstructure:"ssid"`
	Passphrase string `mapstructure:"passphrase"`
	PortalURL  string `mapstructure:"portal_url"`
}

type RadioConfig struct {
	Interface      string `mapstructure:"interface"`
	SupplicantPath string `mapstructure:"supplicant_path"`
	CountryCode    string `mapstructure:"country_code"`
	APStartScript  string `mapstructure:"ap_start_script"`
	APStopScript   string `mapstructure:"ap_stop_script"`
}

type DNSConfig struct {
	ResolvPath  string        `mapstructure:"resolv_path"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
	Nameservers []string      `mapstructure:"nameservers"`
}

type FlowConfig struct {
	ProbeMode      string        `mapstructure:"probe_mode"` // ping or dial
	ProbeTarget    string        `mapstructure:"probe_target"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`
	VerifyBudget   time.Duration `mapstructure:"verify_budget"`
	CredentialWait time.Duration `mapstructure:"credential_wait"`
	Language       string        `mapstructure:"language"`
}

type ActivationConfig struct {
	ServerURL   string        `mapstructure:"server_url"`
	APIKey      string        `mapstructure:"api_key"`
	DeviceType  string        `mapstructure:"device_type"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

type PathsConfig struct {
	SlotPath     string `mapstructure:"slot_path"`
	QRCacheDir   string `mapstructure:"qr_cache_dir"`
	DeviceIDPath string `mapstructure:"device_id_path"`
}

var config Config

func InitConfig() {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/setupd")
	viper.AddConfigPath("/etc/screen-setup")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	_ = viper.BindEnv("activation.api_key", "ACTIVATION_API_KEY")
	_ = viper.BindEnv("activation.server_url", "SERVER_URL")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}

	// Initialize logger with configured log level
	initLogger(config.Log.Level)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Println("Config loaded:")
			fmt.Println(string(configJSON))
		}
	}
}

func setDefaults() {
	viper.SetDefault("log.level", LOG_LEVEL_INFO)

	viper.SetDefault("portal.bind_address", "")
	viper.SetDefault("portal.port", http.DefaultPort)

	viper.SetDefault("ap.ssid", "VistaSetup")
	viper.SetDefault("ap.passphrase", "vista-setup")
	viper.SetDefault("ap.portal_url", "http://192.168.4.1")

	viper.SetDefault("radio.interface", "wlan0")
	viper.SetDefault("radio.supplicant_path", "/etc/wpa_supplicant/wpa_supplicant.conf")
	viper.SetDefault("radio.country_code", "US")
	viper.SetDefault("radio.ap_start_script", "/opt/screen-setup/setup_ap.sh")
	viper.SetDefault("radio.ap_stop_script", "/opt/screen-setup/stop_ap.sh")

	viper.SetDefault("dns.resolv_path", "/etc/resolv.conf")
	viper.SetDefault("dns.max_attempts", 3)
	viper.SetDefault("dns.delay", "2s")
	viper.SetDefault("dns.nameservers", []string{"8.8.8.8", "8.8.4.4"})

	viper.SetDefault("flow.probe_mode", "ping")
	viper.SetDefault("flow.probe_target", "8.8.8.8")
	viper.SetDefault("flow.probe_timeout", "2s")
	viper.SetDefault("flow.verify_budget", "60s")
	viper.SetDefault("flow.credential_wait", "5m")
	viper.SetDefault("flow.language", "en")

	viper.SetDefault("activation.server_url", "http://localhost:5001")
	viper.SetDefault("activation.device_type", "smart_screen")
	viper.SetDefault("activation.timeout", "10s")
	viper.SetDefault("activation.max_attempts", 3)

	viper.SetDefault("paths.slot_path", "/var/lib/screen-setup/wifi_credentials.tmp")
	viper.SetDefault("paths.qr_cache_dir", "/var/cache/screen-setup/qr")
	viper.SetDefault("paths.device_id_path", "/var/lib/screen-setup/device_id")
}
