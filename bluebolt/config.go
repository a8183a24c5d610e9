package bluebolt

import (
	"context"
	"fmt"
	"time"

	"github.com/evcc-io/evcc/util"
	"github.com/evcc-io/evcc/util/request"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the connection settings
type Config struct {
	URI      string        `mapstructure:"uri" yaml:"uri" validate:"omitempty,url"`
	User     string        `mapstructure:"user" yaml:"user" validate:"required"`
	Password string        `mapstructure:"password" yaml:"password" validate:"required"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`
	Retry    int           `mapstructure:"retry" yaml:"retry" validate:"gte=0"`
	Cache    time.Duration `mapstructure:"cache" yaml:"cache" validate:"gte=0"`
}

// DefaultConfig returns the settings used for omitted configuration keys
func DefaultConfig() Config {
	return Config{
		URI:     ENDPOINT,
		Timeout: request.Timeout,
		Retry:   RETRY_LIMIT,
	}
}

// NewFromConfig creates a logged-in connection from generic config
func NewFromConfig(ctx context.Context, other map[string]any) (*Connection, error) {
	cc := DefaultConfig()

	if err := util.DecodeOther(other, &cc); err != nil {
		return nil, err
	}

	if err := validate.Struct(cc); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return New(ctx, util.NewLogger("bluebolt"), cc)
}

// New creates a connection and logs in. The connection is returned even if the login fails,
// it will retry on the next query.
func New(ctx context.Context, log *util.Logger, cc Config) (*Connection, error) {
	identity, err := NewIdentity(log, cc.URI, cc.User, cc.Password)
	if err != nil {
		return nil, err
	}

	conn := NewConnection(log, identity, cc.URI)
	conn.Retry = cc.Retry
	conn.setCache(cc.Cache)

	if cc.Timeout > 0 {
		identity.client.Timeout = cc.Timeout
		conn.SetTimeout(cc.Timeout)
	}

	if _, err := identity.Login(ctx); err != nil {
		log.ERROR.Printf("login failed: %v", err)
		return conn, err
	}

	return conn, nil
}
