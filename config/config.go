package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// Port the HTTP API listens on
		Port int `env:"SERVER_PORT" envDefault:"5250"`
	}

	// Loader configuration
	Loader struct {
		// Maximum number of raw rows read from a vintage per load
		MaxRowsAnalyzed int `env:"LOADER_MAX_ROWS" envDefault:"50000"`

		// Minimum admissible transactions before the primary vintage is considered sufficient
		MinTransactionThreshold int `env:"LOADER_MIN_TRANSACTIONS" envDefault:"10"`

		// Time-to-live of a cached load result (in minutes)
		CacheTTLMinutes int `env:"LOADER_CACHE_TTL" envDefault:"30"`
	}

	// Geocoding configuration
	Geocoding struct {
		// Base URL of the address search service
		BaseURL string `env:"GEOCODING_BASE_URL" envDefault:"https://api-adresse.data.gouv.fr"`

		// Time-to-live of a cached geocoding result (in hours)
		CacheTTLHours int `env:"GEOCODING_CACHE_TTL" envDefault:"168"`

		// HTTP timeout for a single lookup (in seconds)
		TimeoutSeconds int `env:"GEOCODING_TIMEOUT" envDefault:"10"`
	}

	// Analysis configuration
	Analysis struct {
		// Surface tolerance around the target area (m²)
		ToleranceWithAddress int `env:"ANALYSIS_TOLERANCE_ADDRESS" envDefault:"40"`
		ToleranceNoAddress   int `env:"ANALYSIS_TOLERANCE_NO_ADDRESS" envDefault:"20"`
		ToleranceDepartment  int `env:"ANALYSIS_TOLERANCE_DEPARTMENT" envDefault:"30"`

		// Maximum candidates kept after ranking
		MaxCandidates int `env:"ANALYSIS_MAX_CANDIDATES" envDefault:"1000"`

		// Estimation basis sizes when an address is available
		TopByScore   int `env:"ANALYSIS_TOP_BY_SCORE" envDefault:"50"`
		MedianSample int `env:"ANALYSIS_MEDIAN_SAMPLE" envDefault:"30"`

		// Relative divergence beyond which the median is preferred over the weighted mean
		DivergenceThreshold float64 `env:"ANALYSIS_DIVERGENCE_THRESHOLD" envDefault:"0.15"`

		// Composite score weights
		ProximityWeight float64 `env:"ANALYSIS_PROXIMITY_WEIGHT" envDefault:"0.6"`
		RoomWeight      float64 `env:"ANALYSIS_ROOM_WEIGHT" envDefault:"0.25"`
		AreaWeight      float64 `env:"ANALYSIS_AREA_WEIGHT" envDefault:"0.15"`

		// Exact room-count matches needed for a strong no-address estimate
		ExactRoomStrongMin int `env:"ANALYSIS_EXACT_ROOM_STRONG_MIN" envDefault:"10"`

		// Maximum similar transactions exposed to callers
		DisplayLimit int `env:"ANALYSIS_DISPLAY_LIMIT" envDefault:"25"`
	}

	// Store configuration
	Store struct {
		// Path to the sqlite snapshot database
		Path string `env:"STORE_PATH" envDefault:"database/immopilot.db"`

		// Number of transactions per persisted batch
		BatchSize int `env:"STORE_BATCH_SIZE" envDefault:"500"`

		// Buffer size of the batch queue
		QueueSize int `env:"STORE_QUEUE_SIZE" envDefault:"100"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"STORE_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"STORE_RETRY_DELAY" envDefault:"5"`
	}

	// Scheduler configuration
	Scheduler struct {
		// Hour of day (0-23) at which the snapshot refresh runs
		RefreshHour int `env:"SCHEDULER_REFRESH_HOUR" envDefault:"3"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
