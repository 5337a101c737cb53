package socketio

import (
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/ioclient/internal/config"
	"github.com/specialistvlad/ioclient/internal/ioerr"
)

// settings is the typed view of a ConnectionConfig for socket.io. Pointer
// fields are nil when the option was not given, leaving the library default.
type settings struct {
	baseURL   string
	namespace string
	path      string

	reconnection         *bool
	reconnectionAttempts *float64
	reconnectionDelay    *float64
	reconnectionDelayMax *float64
	timeout              time.Duration
	forceNew             *bool
	insecureSkipVerify   bool
	websocketOnly        bool
}

// parseSettings validates cfg and splits the URI the way socket.io does:
// scheme and host address the manager, the URI path names the namespace.
func parseSettings(cfg config.ConnectionConfig) (settings, error) {
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}
	u, err := url.Parse(cfg.URI)
	if err != nil {
		return settings{}, ioerr.NewConfigurationError("uri", err)
	}

	s := settings{
		baseURL:       fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		namespace:     "/",
		websocketOnly: true,
	}
	if u.Path != "" && u.Path != "/" {
		s.namespace = u.Path
	}

	opts := cfg.Options
	if ns, ok, _ := opts.String(config.OptionNamespace); ok && ns != "" {
		s.namespace = ns
	}
	if p, ok, _ := opts.String(config.OptionPath); ok {
		s.path = p
	}
	if v, ok, _ := opts.Bool(config.OptionReconnection); ok {
		s.reconnection = &v
	}
	if v, ok, _ := opts.Bool(config.OptionForceNew); ok {
		s.forceNew = &v
	}
	if v, ok, _ := opts.Bool(config.OptionInsecureSkipVerify); ok {
		s.insecureSkipVerify = v
	}
	if v, ok, _ := opts.Bool(config.OptionWebsocketOnly); ok {
		s.websocketOnly = v
	}
	if v, ok, _ := opts.Number(config.OptionReconnectionAttempts); ok {
		s.reconnectionAttempts = &v
	}
	if v, ok, _ := opts.Number(config.OptionReconnectionDelay); ok {
		s.reconnectionDelay = &v
	}
	if v, ok, _ := opts.Number(config.OptionReconnectionDelayMax); ok {
		s.reconnectionDelayMax = &v
	}
	s.timeout = cfg.ConnectTimeout()
	return s, nil
}
