package config // package config loads application configuration from environment variables

import (
    "errors"  // errors joins every missing variable into one report
    "fmt"     // fmt formats validation messages
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings splits list-valued variables
)

// Store drivers accepted by STORE_DRIVER.
const (
    DriverMySQL  = "mysql"
    DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  DB fields are only required for the mysql
// driver.
type Config struct {
    Env          string   // APP_ENV, e.g. "dev" or "prod"
    Port         string   // APP_PORT, HTTP port to listen on
    StoreDriver  string   // STORE_DRIVER, mysql or memory
    DBUser       string   // DB_USER
    DBPass       string   // DB_PASS (optional)
    DBHost       string   // DB_HOST
    DBPort       string   // DB_PORT
    DBName       string   // DB_NAME
    AutoMigrate  bool     // DB_AUTO_MIGRATE, apply migrations at start
    JWTSecret    string   // JWT_SECRET, signs access tokens
    AccessTTLMin int      // ACCESS_TOKEN_TTL_MIN
    BcryptCost   int      // BCRYPT_COST
    FrontendURL  string   // FRONTEND_URL, base of the seat QR links
    AMQPURL      string   // RABBITMQ_URL or AMQP_URL; empty disables the mirror
    AuditLogDir  string   // AUDIT_LOG_DIR, where the audit consumer writes
    CORSOrigins  []string // CORS_ORIGINS, comma separated
    AdminEmail   string   // ADMIN_EMAIL, staff account created by -seed
    AdminPass    string   // ADMIN_PASSWORD

    Redis     RedisConfig
    RateLimit RateLimitConfig
    Cache     CacheConfig
}

// Load reads configuration values from environment variables.  Every
// missing required variable is reported in the returned error.
func Load() (Config, error) {
    var errs []error
    must := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || v == "" {
            errs = append(errs, fmt.Errorf("missing required env var: %s", key))
        }
        return v
    }
    mustInt := func(key string, def int) int {
        s := os.Getenv(key)
        if s == "" {
            return def
        }
        n, err := strconv.Atoi(s)
        if err != nil {
            errs = append(errs, fmt.Errorf("invalid int for %s: %q", key, s))
        }
        return n
    }

    cfg := Config{
        Env:          envStr("APP_ENV", "dev"),
        Port:         envStr("APP_PORT", "4000"),
        StoreDriver:  strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
        DBPass:       os.Getenv("DB_PASS"),
        AutoMigrate:  envBool("DB_AUTO_MIGRATE", false),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN", 1440),
        BcryptCost:   mustInt("BCRYPT_COST", 10),
        FrontendURL:  envStr("FRONTEND_URL", "http://localhost:5173"),
        AMQPURL:      envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        AuditLogDir:  envStr("AUDIT_LOG_DIR", "logs"),
        CORSOrigins:  splitList(envStr("CORS_ORIGINS", "*")),
        AdminEmail:   os.Getenv("ADMIN_EMAIL"),
        AdminPass:    os.Getenv("ADMIN_PASSWORD"),

        Redis:     LoadRedisConfig(),
        RateLimit: LoadRateLimitConfig(),
        Cache:     LoadCacheConfig(),
    }

    switch cfg.StoreDriver {
    case DriverMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case DriverMemory:
    default:
        errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
    }
    if cfg.AccessTTLMin <= 0 {
        errs = append(errs, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
    }
    if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
        errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", cfg.BcryptCost))
    }
    return cfg, errors.Join(errs...)
}

// LoadDB reads only the database variables; cmd/migrate uses it.
func LoadDB() (user, pass, host, port, name string, err error) {
    var missing []string
    get := func(key string) string {
        v := os.Getenv(key)
        if v == "" {
            missing = append(missing, key)
        }
        return v
    }
    user, host, port, name = get("DB_USER"), get("DB_HOST"), get("DB_PORT"), get("DB_NAME")
    pass = os.Getenv("DB_PASS")
    if len(missing) > 0 {
        err = fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
    }
    return
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
