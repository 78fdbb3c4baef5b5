package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/greenridge/replen/internal/domain"
)

type Config struct {
	Server  ServerConfig
	App     AppConfig
	Rules   domain.RuleSet
	Columns ColumnMap
	History HistoryConfig
	Cache   CacheConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	AllowedOrigins []string
}

type AppConfig struct {
	ReportWindowDays float64
	PODestination    domain.Location
	AccessoryHold    bool // accessories never get a suggested order quantity
	OutputDir        string
	Workers          int
	LogLevel         string
}

// ColumnMap names the source columns of the raw extracts. Header matching is
// whitespace/case-insensitive downstream, so these are canonical spellings,
// not exact ones.
type ColumnMap struct {
	SKU          string
	InventorySKU string
	Description  string
	QtySold      string
	NetSales     string
	GrossSales   string
	Profit       string
	Location     string
	LastSale     string
	Quantity     string // transfer/PO quantity column
	Source       string
	Dest         string
}

type HistoryConfig struct {
	BankDir      string // durable storage for the memory bank
	InboxDir     string // where periodic snapshot exports land
	FilePrefix   string // snapshot filename prefix filter
	WindowWeeks  int    // rolling-velocity window
	MinSnapshots int    // distinct snapshot dates required before history overrides run velocity
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "release")
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

		viper.SetDefault("APP_REPORT_WINDOW_DAYS", 30.0)
		viper.SetDefault("APP_PO_DESTINATION", "Jasper")
		viper.SetDefault("APP_ACCESSORY_HOLD", true)
		viper.SetDefault("APP_OUTPUT_DIR", "./data/output")
		viper.SetDefault("APP_WORKERS", 4)
		viper.SetDefault("APP_LOG_LEVEL", "info")

		// Cannabis-class thresholds.
		viper.SetDefault("RULES_CAN_HOT_VELOCITY", 2.0)
		viper.SetDefault("RULES_CAN_REORDER_POINT", 2.5)
		viper.SetDefault("RULES_CAN_TARGET_WOS", 4.0)
		viper.SetDefault("RULES_CAN_DEAD_WOS", 26.0)
		viper.SetDefault("RULES_CAN_DEAD_ON_HAND", 5)
		// Accessory-class thresholds: slower movers, held longer.
		viper.SetDefault("RULES_ACC_HOT_VELOCITY", 0.5)
		viper.SetDefault("RULES_ACC_REORDER_POINT", 4.0)
		viper.SetDefault("RULES_ACC_TARGET_WOS", 8.0)
		viper.SetDefault("RULES_ACC_DEAD_WOS", 52.0)
		viper.SetDefault("RULES_ACC_DEAD_ON_HAND", 3)
		viper.SetDefault("RULES_GOOD_VELOCITY_MULTIPLIER", 0.25)

		viper.SetDefault("COL_SKU", "SKU")
		viper.SetDefault("COL_INVENTORY_SKU", "SKU")
		viper.SetDefault("COL_DESCRIPTION", "Product Name")
		viper.SetDefault("COL_QTY_SOLD", "Quantity")
		viper.SetDefault("COL_NET_SALES", "Net sales")
		viper.SetDefault("COL_GROSS_SALES", "Gross sales")
		viper.SetDefault("COL_PROFIT", "Profit")
		viper.SetDefault("COL_LOCATION", "Location")
		viper.SetDefault("COL_LAST_SALE", "Last Sale")
		viper.SetDefault("COL_QUANTITY", "Quantity")
		viper.SetDefault("COL_SOURCE", "Source Location")
		viper.SetDefault("COL_DEST", "Destination Location")

		viper.SetDefault("HISTORY_BANK_DIR", "./data/memory_bank")
		viper.SetDefault("HISTORY_INBOX_DIR", "./data/inbox")
		viper.SetDefault("HISTORY_FILE_PREFIX", "product-sales")
		viper.SetDefault("HISTORY_WINDOW_WEEKS", 4)
		viper.SetDefault("HISTORY_MIN_SNAPSHOTS", 1)

		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_TTL_SECONDS", 300)

		viper.AutomaticEnv()

		mult := viper.GetFloat64("RULES_GOOD_VELOCITY_MULTIPLIER")

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			App: AppConfig{
				ReportWindowDays: viper.GetFloat64("APP_REPORT_WINDOW_DAYS"),
				PODestination:    domain.NormalizeLocation(viper.GetString("APP_PO_DESTINATION")),
				AccessoryHold:    viper.GetBool("APP_ACCESSORY_HOLD"),
				OutputDir:        viper.GetString("APP_OUTPUT_DIR"),
				Workers:          viper.GetInt("APP_WORKERS"),
				LogLevel:         viper.GetString("APP_LOG_LEVEL"),
			},
			Rules: domain.RuleSet{
				Cannabis: domain.StatusRules{
					HotVelocity:            viper.GetFloat64("RULES_CAN_HOT_VELOCITY"),
					ReorderPoint:           viper.GetFloat64("RULES_CAN_REORDER_POINT"),
					TargetWOS:              viper.GetFloat64("RULES_CAN_TARGET_WOS"),
					DeadWOS:                viper.GetFloat64("RULES_CAN_DEAD_WOS"),
					DeadOnHand:             viper.GetInt("RULES_CAN_DEAD_ON_HAND"),
					GoodVelocityMultiplier: mult,
				},
				Accessory: domain.StatusRules{
					HotVelocity:            viper.GetFloat64("RULES_ACC_HOT_VELOCITY"),
					ReorderPoint:           viper.GetFloat64("RULES_ACC_REORDER_POINT"),
					TargetWOS:              viper.GetFloat64("RULES_ACC_TARGET_WOS"),
					DeadWOS:                viper.GetFloat64("RULES_ACC_DEAD_WOS"),
					DeadOnHand:             viper.GetInt("RULES_ACC_DEAD_ON_HAND"),
					GoodVelocityMultiplier: mult,
				},
			},
			Columns: ColumnMap{
				SKU:          viper.GetString("COL_SKU"),
				InventorySKU: viper.GetString("COL_INVENTORY_SKU"),
				Description:  viper.GetString("COL_DESCRIPTION"),
				QtySold:      viper.GetString("COL_QTY_SOLD"),
				NetSales:     viper.GetString("COL_NET_SALES"),
				GrossSales:   viper.GetString("COL_GROSS_SALES"),
				Profit:       viper.GetString("COL_PROFIT"),
				Location:     viper.GetString("COL_LOCATION"),
				LastSale:     viper.GetString("COL_LAST_SALE"),
				Quantity:     viper.GetString("COL_QUANTITY"),
				Source:       viper.GetString("COL_SOURCE"),
				Dest:         viper.GetString("COL_DEST"),
			},
			History: HistoryConfig{
				BankDir:      viper.GetString("HISTORY_BANK_DIR"),
				InboxDir:     viper.GetString("HISTORY_INBOX_DIR"),
				FilePrefix:   viper.GetString("HISTORY_FILE_PREFIX"),
				WindowWeeks:  viper.GetInt("HISTORY_WINDOW_WEEKS"),
				MinSnapshots: viper.GetInt("HISTORY_MIN_SNAPSHOTS"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
			},
		}
	})

	return instance
}
