package client

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/hatcher/taskchat/auth"
	"github.com/hatcher/taskchat/chat"
	"github.com/hatcher/taskchat/pkg/cfg"
	"github.com/hatcher/taskchat/pkg/httpx"
	"github.com/hatcher/taskchat/pkg/logs"
	"github.com/hatcher/taskchat/pkg/slotstore"
	"github.com/hatcher/taskchat/pkg/util"
	"github.com/hatcher/taskchat/task"
)

type Config struct {
	// BaseURL is the backend origin, e.g. http://localhost:8000.
	BaseURL string `json:"baseUrl" yaml:"base-url" mapstructure:"base-url"`
	// Timeout of zero keeps the transport default.
	Timeout   time.Duration    `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	SlotStore slotstore.Config `json:"slotStore" yaml:"slot-store" mapstructure:"slot-store"`
	Auth      auth.Config      `json:"auth" yaml:"auth" mapstructure:"auth"`
	Chat      chat.Config      `json:"chat" yaml:"chat" mapstructure:"chat"`
	Log       logs.LogConfig   `json:"log" yaml:"log" mapstructure:"log"`
}

// Client bundles the session, task and conversation services over one
// shared HTTP client and slot store. Construct once per process and pass
// explicitly; there are no package-level singletons.
type Client struct {
	Auth auth.Service
	Task task.Service
	Chat chat.Store

	http *httpx.Client
}

func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.Errorf("base url is required")
	}

	slots, err := slotstore.NewSlotStore(config.SlotStore)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to initial slot store")
	}

	var httpClient *httpx.Client
	if config.Timeout > 0 {
		httpClient = httpx.NewClient(config.BaseURL, config.Timeout)
	} else {
		httpClient = httpx.NewDefaultClient(config.BaseURL)
	}

	authService := auth.NewService(slots, auth.NewGateway(httpClient), config.Auth)
	httpClient.SetTokenSource(authService.Token)

	chatStore := chat.NewStore(slots, chat.NewGateway(httpClient), userIDSource(authService), config.Chat)

	return &Client{
		Auth: authService,
		Task: task.NewService(httpClient),
		Chat: chatStore,
		http: httpClient,
	}, nil
}

// Init resolves the initial session from the stored credential, restores
// the persisted conversation and starts the credential refresh watcher.
func (c *Client) Init(ctx context.Context) error {
	if _, err := c.Auth.Init(ctx); err != nil {
		return err
	}
	if err := c.Chat.Init(ctx); err != nil {
		return err
	}
	c.Auth.StartWatcher(ctx)
	return nil
}

func (c *Client) Shutdown() {
	c.Auth.Shutdown()
	c.Chat.Shutdown()
}

// LoadConfig reads a yaml config file and initializes logging from it.
// Values can be overridden through TASKCHAT_-prefixed environment variables.
func LoadConfig(configDir, configFile string) (*Config, error) {
	var config Config
	if err := cfg.LoadConfigWithEnv(configDir, configFile, "yaml", "TASKCHAT", &config); err != nil {
		return nil, err
	}
	if err := logs.InitLogger(config.Log, "taskchat.log"); err != nil {
		return nil, err
	}
	return &config, nil
}

// ParseConfig parses an inline yaml document keyed by the config's JSON
// field names (baseUrl, slotStore, ...). Handy for tests and embedded
// configuration.
func ParseConfig(content string) (*Config, error) {
	m, err := util.Yml2Map(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse config yaml")
	}
	config, err := util.Convert[Config](m)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to map config fields")
	}
	return config, nil
}

// userIDSource maps the session subject to the numeric user id the task
// and chat endpoints are scoped by. Non-numeric subjects resolve as absent.
func userIDSource(authService auth.Service) chat.UserIDSource {
	return func() (int64, bool) {
		session := authService.Current()
		if !session.Authenticated() {
			return 0, false
		}
		id, err := strconv.ParseInt(session.SubjectID, 10, 64)
		if err != nil {
			return 0, false
		}
		return id, true
	}
}
