package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jakechorley/volunteer-shifts/internal/config"
	"github.com/jakechorley/volunteer-shifts/pkg/utils"
)

// Client wraps the Gmail API client and sends volunteer notification emails
type Client struct {
	send     func(ctx context.Context, msg *gmail.Message) error
	ctx      context.Context
	from     string
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// NewClient creates a Gmail client, running the OAuth flow for env if no
// stored token is usable. from is the sender address shown to volunteers.
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, env, from string, logger *zap.Logger) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	token, err := utils.NewTokenStore(env, logger).GetTokenWithFlow(ctx, oauthConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	return NewClientWithToken(ctx, oauthConfig, token, from)
}

// NewClientWithToken creates a Gmail client from an existing token
func NewClientWithToken(ctx context.Context, oauthConfig *oauth2.Config, token *oauth2.Token, from string) (*Client, error) {
	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	send := func(ctx context.Context, msg *gmail.Message) error {
		_, err := service.Users.Messages.Send("me", msg).Context(ctx).Do()
		return err
	}
	return newClient(ctx, send, from), nil
}

func newClient(ctx context.Context, send func(ctx context.Context, msg *gmail.Message) error, from string) *Client {
	return &Client{
		send:     send,
		ctx:      ctx,
		from:     from,
		interval: EMAIL_INTERVAL,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}
