package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"sales_command_center/platform/config"
)

// Client enqueues scheduler tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates the task client from scheduler configuration.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePollCycle queues one poll cycle. Uniqueness over a short window
// keeps a slow cycle from stacking duplicates behind itself.
func (c *Client) EnqueuePollCycle(ctx context.Context, triggeredBy string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewPollCycleTask(PollCyclePayload{TriggeredBy: triggeredBy})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(time.Minute))
	return err
}

// EnqueueDailySummary queues the evening recap for the given date.
func (c *Client) EnqueueDailySummary(ctx context.Context, date time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewDailySummaryTask(DailySummaryPayload{Date: date.Format("2006-01-02")})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.Unique(12*time.Hour))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
