package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Hold and payment windows are configured in
// minutes because that is how the box office reasons about them.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    SessionSecret string        // secret used to sign browsing-session tokens
    SessionTTL    time.Duration // lifetime of an issued session token

    SeatHoldTTL         time.Duration // how long a session hold keeps a seat
    PaymentTimeout      time.Duration // payment deadline for a pending booking
    BookingExpireBuffer time.Duration // grace added on top of the deadline before the sweep acts
    MaxSeatsPerBooking  int           // default per-session seat cap

    GatewayMerchantKey string // payment gateway merchant key
    GatewaySecretKey   string // payment gateway request-signing secret
    GatewayChecksumKey string // payment gateway return-checksum key
    GatewayURL         string // payment gateway API base URL
    GatewayReturnURL   string // public URL of our return endpoint

    PaymentSuccessURL string // frontend URL the browser lands on after success
    PaymentFailureURL string // frontend URL the browser lands on after failure

    RabbitURL string // AMQP connection string (optional; empty disables events)

    HoldSweepInterval    time.Duration // seat-hold expiry sweep period
    BookingSweepInterval time.Duration // booking expiry sweep period
    PaymentSyncInterval  time.Duration // gateway status sync period
}

// Load reads configuration values from environment variables and returns a
// Config.  A local .env file is loaded first when present.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.
func Load() Config {
    _ = godotenv.Load() // .env is optional; deployments set the environment directly

    return Config{
        Env:  must("APP_ENV"),
        Port: must("APP_PORT"),

        DBUser: must("DB_USER"),
        DBPass: os.Getenv("DB_PASS"), // empty allowed
        DBHost: must("DB_HOST"),
        DBPort: must("DB_PORT"),
        DBName: must("DB_NAME"),

        SessionSecret: must("SESSION_SECRET"),
        SessionTTL:    minutes("SESSION_TTL_MIN", 240),

        SeatHoldTTL:         minutes("SEAT_HOLD_TTL_MIN", 5),
        PaymentTimeout:      minutes("PAYMENT_TIMEOUT_MIN", 15),
        BookingExpireBuffer: minutes("BOOKING_EXPIRE_BUFFER_MIN", 2),
        MaxSeatsPerBooking:  envInt("MAX_SEATS_PER_BOOKING", 8),

        GatewayMerchantKey: must("GATEWAY_MERCHANT_KEY"),
        GatewaySecretKey:   must("GATEWAY_SECRET_KEY"),
        GatewayChecksumKey: must("GATEWAY_CHECKSUM_KEY"),
        GatewayURL:         must("GATEWAY_URL"),
        GatewayReturnURL:   must("GATEWAY_RETURN_URL"),

        PaymentSuccessURL: must("PAYMENT_SUCCESS_URL"),
        PaymentFailureURL: must("PAYMENT_FAILURE_URL"),

        RabbitURL: os.Getenv("RABBITMQ_URL"),

        HoldSweepInterval:    envDur("HOLD_SWEEP_INTERVAL", time.Minute),
        BookingSweepInterval: envDur("BOOKING_SWEEP_INTERVAL", 5*time.Minute),
        PaymentSyncInterval:  envDur("PAYMENT_SYNC_INTERVAL", 2*time.Minute),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// minutes reads an integer environment variable expressed in minutes and
// returns it as a duration, falling back to the given default.
func minutes(key string, def int) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return time.Duration(def) * time.Minute
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, v)
    }
    return time.Duration(n) * time.Minute
}
