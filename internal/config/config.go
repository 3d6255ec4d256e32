package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Store    StoreConfig    `mapstructure:"store"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// ConnString returns the PostgreSQL connection string.
func (d DatabaseConfig) ConnString() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// AutoColumns controls which columns are managed automatically on every
// dynamic table.
type AutoColumns struct {
	ID        bool `mapstructure:"id"`
	CreatedAt bool `mapstructure:"created_at"`
	UpdatedAt bool `mapstructure:"updated_at"`
}

// StoreConfig holds the object store behavior switches.
type StoreConfig struct {
	MetadataTable string      `mapstructure:"metadata_table"`
	SoftDelete    bool        `mapstructure:"soft_delete"`
	AutoColumns   AutoColumns `mapstructure:"auto_columns"`
}

// DefaultStoreConfig returns the defaults: metadata in "__schema", soft
// deletes on, all auto columns on.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MetadataTable: "__schema",
		SoftDelete:    true,
		AutoColumns:   AutoColumns{ID: true, CreatedAt: true, UpdatedAt: true},
	}
}

func (c StoreConfig) WithMetadataTable(name string) StoreConfig {
	c.MetadataTable = name
	return c
}

func (c StoreConfig) WithSoftDelete(enabled bool) StoreConfig {
	c.SoftDelete = enabled
	return c
}

func (c StoreConfig) WithoutAutoID() StoreConfig {
	c.AutoColumns.ID = false
	return c
}

func (c StoreConfig) WithoutAutoCreatedAt() StoreConfig {
	c.AutoColumns.CreatedAt = false
	return c
}

func (c StoreConfig) WithoutAutoUpdatedAt() StoreConfig {
	c.AutoColumns.UpdatedAt = false
	return c
}

// ReservedColumnNames lists the auto-managed column names user columns may
// not shadow, given the current switches.
func (c StoreConfig) ReservedColumnNames() []string {
	var names []string
	if c.AutoColumns.ID {
		names = append(names, "id")
	}
	if c.AutoColumns.CreatedAt {
		names = append(names, "created_at")
	}
	if c.AutoColumns.UpdatedAt {
		names = append(names, "updated_at")
	}
	if c.SoftDelete {
		names = append(names, "deleted")
	}
	return names
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.pool_size", 10)
	viper.SetDefault("store.metadata_table", "__schema")
	viper.SetDefault("store.soft_delete", true)
	viper.SetDefault("store.auto_columns.id", true)
	viper.SetDefault("store.auto_columns.created_at", true)
	viper.SetDefault("store.auto_columns.updated_at", true)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
