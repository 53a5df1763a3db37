package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/carbidz-backend/pkg/config"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub v2 connection of one process. Publishers are created
// once per topic with message ordering on, since every event is keyed by its
// auction id.
type Client struct {
	gc            *pubsub.Client
	projectID     string
	subscriptions []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects and verifies that every subscription the process consumes
// exists. Publisher-only processes pass none.
func NewClient(ctx context.Context, gcp config.GCPConfig, subscriptions []string, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	gc, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		gc:            gc,
		projectID:     projectID,
		subscriptions: subscriptionNames(subscriptions...),
		publishers:    make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = gc.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "subscriptions", c.subscriptions), "pubsub client initialized")
	}
	return c, nil
}

// clientOptions prefers inline JSON credentials, then a credentials file, then
// application default credentials.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if file := strings.TrimSpace(gcp.ApplicationCredentials); file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	return nil
}

func subscriptionNames(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Ping checks every configured subscription concurrently.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.gc == nil {
		return errNotInitialized
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range c.subscriptions {
		g.Go(func() error { return c.checkSubscription(gctx, name) })
	}
	return g.Wait()
}

func (c *Client) checkSubscription(ctx context.Context, name string) error {
	full := resourceName(c.projectID, kindSubscription, name)
	if full == "" {
		return fmt.Errorf("subscription %q not configured", name)
	}
	_, err := c.gc.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("subscription %q does not exist", name)
	default:
		return fmt.Errorf("checking subscription %q: %w", name, err)
	}
}

// Subscription returns a receive handle for a subscription ID or full name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.gc == nil {
		return nil
	}
	full := resourceName(c.projectID, kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.gc.Subscriber(full)
}

// Publisher returns the cached ordered publisher for a topic ID or full name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.gc == nil {
		return nil
	}
	full := resourceName(c.projectID, kindTopic, name)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.publishers[full]
	if !ok {
		p = c.gc.Publisher(full)
		p.EnableMessageOrdering = true
		c.publishers[full] = p
	}
	return p
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.gc == nil {
		return nil
	}
	c.mu.Lock()
	for full, p := range c.publishers {
		p.Stop()
		delete(c.publishers, full)
	}
	c.mu.Unlock()
	return c.gc.Close()
}

// resourceName expands a short ID to projects/<project>/<kind>/<id>. Names
// already in full form pass through; blank input yields "".
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if projectID = strings.TrimSpace(projectID); projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
