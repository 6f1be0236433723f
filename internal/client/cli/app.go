package cli

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/guestkeeper/internal/adminapi"
	"github.com/dmitrijs2005/guestkeeper/internal/client/client"
	"github.com/dmitrijs2005/guestkeeper/internal/client/config"
	"github.com/dmitrijs2005/guestkeeper/internal/common"
)

// AdminClient is the admin channel as seen by the console.
type AdminClient interface {
	ListUsersAndTokens(ctx context.Context) ([]adminapi.UserTokens, error)
	CreateToken(ctx context.Context, userID, name string, startOffsetMinutes, ttlMinutes int) (string, error)
	DeleteToken(ctx context.Context, id int64) error
	CreateUser(ctx context.Context, userName, name string) (adminapi.User, error)
	Close() error
}

type App struct {
	config *config.Config
	client AdminClient
	http   *http.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	secret := []byte(c.AdminSecret)
	if c.PromptAdminSecret {
		s, err := GetSecret(os.Stdout)
		if err != nil {
			return nil, err
		}
		secret = s
	}

	apiClient, err := client.NewAdminClient(c.ServerEndpointAddr, append([]byte(nil), secret...))
	common.WipeByteArray(secret)
	if err != nil {
		return nil, err
	}

	return newApp(c, apiClient, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, ac AdminClient, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		client: ac,
		http:   &http.Client{Timeout: c.RequestTimeout},
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.client.Close()
	runREPL(ctx, a, a.reader, a.out)
}

func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
