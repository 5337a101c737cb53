package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"net/url"
	"time"

	"github.com/specialistvlad/ioclient/internal/ioerr"
)

// Well-known option keys. Every other key is passed to the transport untouched.
const (
	OptionAutoConnect          = "autoConnect"
	OptionTimeout              = "timeout"
	OptionPath                 = "path"
	OptionNamespace            = "namespace"
	OptionReconnection         = "reconnection"
	OptionReconnectionAttempts = "reconnectionAttempts"
	OptionReconnectionDelay    = "reconnectionDelay"
	OptionReconnectionDelayMax = "reconnectionDelayMax"
	OptionForceNew             = "forceNew"
	OptionInsecureSkipVerify   = "insecureSkipVerify"
	OptionWebsocketOnly        = "websocketOnly"
)

// DefaultConnectTimeout bounds the initial connect when no timeout option is set.
const DefaultConnectTimeout = 15 * time.Second

// maxMillis is the largest millisecond option that still fits a time.Duration.
const maxMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// Loader reads a ConnectionConfig from a format-specific source.
type Loader interface {
	Load(ctx context.Context, path string) (ConnectionConfig, error)
}

// ConnectionConfig describes the single endpoint of a registration scope.
type ConnectionConfig struct {
	URI     string
	Options Options
}

// Options holds transport options keyed by their socket.io names.
type Options map[string]any

// Validate checks the URI and the types of the well-known options. Errors
// are returned as *ioerr.ConfigurationError.
func (c ConnectionConfig) Validate() error {
	if c.URI == "" {
		return ioerr.NewConfigurationError("uri", errors.New("must not be empty"))
	}
	u, err := url.Parse(c.URI)
	if err != nil {
		return ioerr.NewConfigurationError("uri", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return ioerr.NewConfigurationError("uri", fmt.Errorf("unsupported scheme '%s'", u.Scheme))
	}
	if u.Host == "" {
		return ioerr.NewConfigurationError("uri", errors.New("missing host"))
	}

	for _, key := range []string{OptionAutoConnect, OptionReconnection, OptionForceNew, OptionInsecureSkipVerify, OptionWebsocketOnly} {
		if _, _, err := c.Options.Bool(key); err != nil {
			return err
		}
	}
	for _, key := range []string{OptionTimeout, OptionReconnectionAttempts, OptionReconnectionDelay, OptionReconnectionDelayMax} {
		v, ok, err := c.Options.Number(key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if math.IsNaN(v) || v < 0 {
			return ioerr.NewConfigurationError(key, fmt.Errorf("must not be negative, got %v", v))
		}
		if key != OptionReconnectionAttempts && v > maxMillis {
			return ioerr.NewConfigurationError(key, fmt.Errorf("%v ms does not fit a duration", v))
		}
	}
	for _, key := range []string{OptionPath, OptionNamespace} {
		if _, _, err := c.Options.String(key); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a copy whose Options map can be modified independently.
func (c ConnectionConfig) Clone() ConnectionConfig {
	return ConnectionConfig{URI: c.URI, Options: c.Options.Clone()}
}

// AutoConnect reports whether the connection should be opened on creation.
// The transport default is true, so a missing flag means true.
func (c ConnectionConfig) AutoConnect() bool {
	v, ok, err := c.Options.Bool(OptionAutoConnect)
	if err != nil || !ok {
		return true
	}
	return v
}

// ConnectTimeout returns the bound on the initial connect, taken from the
// "timeout" option in milliseconds.
func (c ConnectionConfig) ConnectTimeout() time.Duration {
	ms, ok, err := c.Options.Number(OptionTimeout)
	if err != nil || !ok || ms == 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Clone returns a shallow copy of o. A nil map stays nil.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	return maps.Clone(o)
}

// Bool returns the boolean option under key. ok is false when the key is absent.
func (o Options) Bool(key string) (value bool, ok bool, err error) {
	raw, exists := o[key]
	if !exists || raw == nil {
		return false, false, nil
	}
	b, isBool := raw.(bool)
	if !isBool {
		return false, false, ioerr.NewConfigurationError(key, fmt.Errorf("expected bool, got %T", raw))
	}
	return b, true, nil
}

// String returns the string option under key.
func (o Options) String(key string) (value string, ok bool, err error) {
	raw, exists := o[key]
	if !exists || raw == nil {
		return "", false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", false, ioerr.NewConfigurationError(key, fmt.Errorf("expected string, got %T", raw))
	}
	return s, true, nil
}

// Number returns the numeric option under key as float64. Any Go integer or
// float type is accepted since values may come from HCL or from code.
func (o Options) Number(key string) (value float64, ok bool, err error) {
	raw, exists := o[key]
	if !exists || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	case int32:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case uint:
		return float64(v), true, nil
	case uint32:
		return float64(v), true, nil
	case uint64:
		return float64(v), true, nil
	case time.Duration:
		return float64(v.Milliseconds()), true, nil
	default:
		return 0, false, ioerr.NewConfigurationError(key, fmt.Errorf("expected number, got %T", raw))
	}
}
