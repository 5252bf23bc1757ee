package journal

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"

	defaultMaxOpenConns    = 4
	defaultConnMaxLifetime = 30 * time.Minute
)

// Option defines the PostgreSQL connection of the journal. ConnString wins
// over the other connection fields.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string

	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// Config replaces the default gorm config, which only logs errors.
	Config *gorm.Config
}

func dial(opt Option) (*gorm.DB, error) {
	config := opt.Config
	if config == nil {
		config = &gorm.Config{Logger: logger.Default.LogMode(logger.Error)}
	}

	db, err := gorm.Open(postgres.Open(opt.DSN()), config)
	if err != nil {
		return nil, err
	}

	if config.DryRun {
		return db, nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := opt.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	lifetime := opt.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(lifetime)
	return db, nil
}

// DSN renders the connection URL.
func (opt Option) DSN() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host := opt.Host
	if host == "" {
		host = defaultHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := &url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%d", host, port)}
	switch {
	case opt.User != "" && opt.Password != "":
		u.User = url.UserPassword(opt.User, opt.Password)
	case opt.User != "":
		u.User = url.User(opt.User)
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	keys := make([]string, 0, len(opt.Params))
	for key := range opt.Params {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		query.Set(key, opt.Params[key])
	}
	u.RawQuery = query.Encode()
	return u.String()
}
