package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Tier struct {
	Name      string `mapstructure:"NAME"`
	MinPoints int64  `mapstructure:"MIN_POINTS"`
}

type Lane struct {
	Network   string `mapstructure:"NETWORK"`
	Threshold int64  `mapstructure:"THRESHOLD"`
}

type Config struct {
	AppEnv  string `mapstructure:"APP_ENV"`
	AppName string `mapstructure:"APP_NAME"`

	Database struct {
		Type           string `mapstructure:"TYPE"`
		DSN            string `mapstructure:"DSN"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`

	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`

	Campaign struct {
		Start           string   `mapstructure:"START"`
		End             string   `mapstructure:"END"`
		Timezone        string   `mapstructure:"TIMEZONE"`
		ExcludedWallets []string `mapstructure:"EXCLUDED_WALLETS"`
	} `mapstructure:"CAMPAIGN"`

	Points struct {
		PerPost            int64            `mapstructure:"PER_POST"`
		ContentTopProjects int              `mapstructure:"CONTENT_TOP_PROJECTS"`
		QualifiedReferral  int64            `mapstructure:"QUALIFIED_REFERRAL"`
		LaneA              Lane             `mapstructure:"LANE_A"`
		LaneB              Lane             `mapstructure:"LANE_B"`
		MilestoneSize      int64            `mapstructure:"MILESTONE_SIZE"`
		MilestoneBonus     int64            `mapstructure:"MILESTONE_BONUS"`
		ImpressionsPool    int64            `mapstructure:"IMPRESSIONS_POOL"`
		ImpressionsPools   map[string]int64 `mapstructure:"IMPRESSIONS_POOLS"`
		ImpressionsTopN    int              `mapstructure:"IMPRESSIONS_TOP_N"`
		ChampionBonus      int64            `mapstructure:"CHAMPION_BONUS"`
		ChampionTopK       int              `mapstructure:"CHAMPION_TOP_K"`
		PaymentStatus      string           `mapstructure:"PAYMENT_STATUS"`
	} `mapstructure:"POINTS"`

	Tiers []Tier `mapstructure:"TIERS"`

	Engine struct {
		Concurrency int           `mapstructure:"CONCURRENCY"`
		Schedule    string        `mapstructure:"SCHEDULE"`
		LockTTL     time.Duration `mapstructure:"LOCK_TTL"`
	} `mapstructure:"ENGINE"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "yapper-points")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.DSN", "")
	v.SetDefault("DATABASE.HOST", "")
	v.SetDefault("DATABASE.DBNAME", "")
	v.SetDefault("DATABASE.USER", "")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.PORT", "5432")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")

	v.SetDefault("REDIS.ADDR", "")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 5*time.Second)

	v.SetDefault("CAMPAIGN.START", "")
	v.SetDefault("CAMPAIGN.END", "")
	v.SetDefault("CAMPAIGN.TIMEZONE", "UTC")
	v.SetDefault("CAMPAIGN.EXCLUDED_WALLETS", []string{})

	v.SetDefault("POINTS.PER_POST", 100)
	v.SetDefault("POINTS.CONTENT_TOP_PROJECTS", 3)
	v.SetDefault("POINTS.QUALIFIED_REFERRAL", 10000)
	v.SetDefault("POINTS.LANE_A.NETWORK", "base")
	v.SetDefault("POINTS.LANE_A.THRESHOLD", 3)
	v.SetDefault("POINTS.LANE_B.NETWORK", "somnia_testnet")
	v.SetDefault("POINTS.LANE_B.THRESHOLD", 10)
	v.SetDefault("POINTS.MILESTONE_SIZE", 20)
	v.SetDefault("POINTS.MILESTONE_BONUS", 10000)
	v.SetDefault("POINTS.IMPRESSIONS_POOL", 20000)
	v.SetDefault("POINTS.IMPRESSIONS_TOP_N", 10)
	v.SetDefault("POINTS.CHAMPION_BONUS", 10000)
	v.SetDefault("POINTS.CHAMPION_TOP_K", 5)
	v.SetDefault("POINTS.PAYMENT_STATUS", "completed")

	v.SetDefault("ENGINE.CONCURRENCY", 4)
	v.SetDefault("ENGINE.SCHEDULE", "0 */6 * * *")
	v.SetDefault("ENGINE.LOCK_TTL", 30*time.Minute)
}

// DefaultTiers is used when no TIERS section is configured.
var DefaultTiers = []Tier{
	{Name: "SILVER", MinPoints: 0},
	{Name: "GOLD", MinPoints: 20000},
	{Name: "PLATINUM", MinPoints: 50000},
	{Name: "EMERALD", MinPoints: 100000},
	{Name: "DIAMOND", MinPoints: 200000},
	{Name: "UNICORN", MinPoints: 500000},
}

// LoadConfig reads config.yaml from path (or the working directory) and
// overlays the environment. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Tiers) == 0 {
		cfg.Tiers = append([]Tier(nil), DefaultTiers...)
	}

	return &cfg, nil
}
