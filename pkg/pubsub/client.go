// Package pubsub owns the Google Cloud Pub/Sub connection used to fan out
// order and invoice events.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/orderdesk/pkg/config"
	"github.com/angelmondragon/orderdesk/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("pubsub topic name is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client  *pubsub.Client
	project string
	topics  []string
	create  bool
}

// NewClient dials Pub/Sub and verifies every configured topic exists,
// creating missing ones when cfg.CreateTopics is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topics := topicNames(cfg)
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	conn, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: conn, project: project, topics: topics, create: cfg.CreateTopics}
	if err := c.checkTopics(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"topics": topics, "gcp_project": project}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

// topicNames trims and de-duplicates the configured topics; orders and
// invoices may share one topic.
func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.OrdersTopic, cfg.InvoicesTopic} {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

func (c *Client) checkTopics(ctx context.Context) error {
	for _, name := range c.topics {
		full := resourceName(c.project, name)
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		switch {
		case err == nil:
		case status.Code(err) == codes.NotFound && c.create:
			if _, err := c.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: full}); err != nil && status.Code(err) != codes.AlreadyExists {
				return fmt.Errorf("creating topic %q: %w", name, err)
			}
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %q does not exist", name)
		default:
			return fmt.Errorf("checking topic %q: %w", name, err)
		}
	}
	return nil
}

// Publisher returns a publisher for a topic id or full resource name, or nil
// when the client is not initialized.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.project, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping re-checks that the configured topics are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.checkTopics(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resourceName expands a topic id to projects/<project>/topics/<id>. Full
// resource names pass through so a topic can live in another project.
func resourceName(project, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + name
}
