package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		Build            string
		AppName          string
		SchoolName       string
		SecretKey        string
		TimeZone         string
		CurrencySymbol   string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Director DirectorConfig
		Fees     FeesConfig

		location *time.Location
	}

	ServerConfig struct {
		Address           string
		Host              string
		DebugHost         string
		SessionExpiration time.Duration
		ShutdownTimeout   time.Duration
		SecureCookies     bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// DirectorConfig holds the credentials of the director account seeded at startup.
	// Nothing is seeded when Username is empty.
	DirectorConfig struct {
		Username string
		Password string
	}

	FeesConfig struct {
		DefaultDueDay int
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Location returns the time zone used to compute "today" for payment and issue dates.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		loc, err := time.LoadLocation(c.TimeZone)
		if err != nil {
			loc = time.UTC
		}
		c.location = loc
	}
	return c.location
}

// NewConfig loads the configuration from the environment.
// Variables are prefixed with the current ENV, eg. DEV_DATABASE_NAME, PROD_SECRET_KEY.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Escola")
	v.SetDefault("schoolName", "Escola")
	v.SetDefault("secretKey", "s3cr3t-k3y!-ch4ng3-m3-4nd-k33p-m3-l0ng-3n0ugh(k)#")
	v.SetDefault("timeZone", "America/Sao_Paulo")
	v.SetDefault("currencySymbol", "R$")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.sessionExpiration", 12*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.secureCookies", false)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "escola")
	v.SetDefault("database.user", "escola")
	v.SetDefault("database.password", "escola")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("director.username", "")
	v.SetDefault("director.password", "")
	v.SetDefault("fees.defaultDueDay", 10)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SchoolName:       v.GetString("schoolName"),
		SecretKey:        v.GetString("secretKey"),
		TimeZone:         v.GetString("timeZone"),
		CurrencySymbol:   v.GetString("currencySymbol"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:           v.GetString("server.address"),
			Host:              v.GetString("server.host"),
			DebugHost:         v.GetString("server.debugHost"),
			SessionExpiration: v.GetDuration("server.sessionExpiration"),
			ShutdownTimeout:   v.GetDuration("server.shutdownTimeout"),
			SecureCookies:     v.GetBool("server.secureCookies"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Director: DirectorConfig{
			Username: v.GetString("director.username"),
			Password: v.GetString("director.password"),
		},
		Fees: FeesConfig{
			DefaultDueDay: v.GetInt("fees.defaultDueDay"),
		},
	}
}
