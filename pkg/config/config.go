package config

import (
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTPServer
	Store
	Postgres

	// Users lists the accounts allowed to write, as email:password pairs
	// separated by commas.
	Users string `env:"USERS"`

	// ImportCSV is an optional CSV file restored into the store at startup.
	ImportCSV string `env:"IMPORT_CSV"`
}

type HTTPServer struct {
	ListenAddress string        `env:"LISTEN_ADDRESS" env-default:"127.0.0.1:1412"`
	ReadTimeout   time.Duration `env:"READ_TIMEOUT" env-default:"5s"`
	WriteTimeout  time.Duration `env:"WRITE_TIMEOUT" env-default:"5s"`
}

type Store struct {
	Driver     string `env:"STORE_DRIVER" env-default:"memory"`
	SQLitePath string `env:"SQLITE_PATH" env-default:"./data/board.sqlite"`
}

type Postgres struct {
	User    string `env:"POSTGRES_USER" env-default:"postgres"`
	Pass    string `env:"POSTGRES_PASSWORD" env-default:"postgres"`
	Host    string `env:"POSTGRES_HOST" env-default:"localhost"`
	Port    string `env:"POSTGRES_PORT" env-default:"5432"`
	DB      string `env:"POSTGRES_DB" env-default:"board"`
	SSLMode string `env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// New reads the configuration from the environment, after loading envFile
// over it if envFile is not empty.
func New(envFile string) (*Config, error) {
	conf := &Config{}

	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return nil, errors.Wrapf(err, "Error while loading %s", envFile)
		}
	}

	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, errors.Wrap(err, "Error while reading environment")
	}

	switch conf.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return nil, errors.Errorf("Unknown store driver %q", conf.Driver)
	}

	return conf, nil
}

// DSN returns the lib/pq connection string for the database.
func (p Postgres) DSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Pass),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.DB,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}

	return dsn.String()
}

// ParseUsers maps the emails of the configured users to their password.
func (c *Config) ParseUsers() (map[string]string, error) {
	users := map[string]string{}

	for _, entry := range strings.Split(c.Users, ",") {
		entry = strings.TrimSpace(entry)

		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 2)

		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Errorf("Invalid user entry %q (expected email:password)", entry)
		}

		users[parts[0]] = parts[1]
	}

	return users, nil
}
