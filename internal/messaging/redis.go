package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"led-service/internal/logger"
	"led-service/internal/types"

	"github.com/redis/go-redis/v9"
)

type Callbacks struct {
	SetCallback         func(SwitchCommand) error
	ToggleCallback      func(string) error
	SmoothCallback      func(SwitchCommand) error
	BlinkCallback       func(BlinkCommand) error
	BlinkSmoothCallback func(BlinkCommand) error
	ConfigCallback      func(ConfigCommand) error
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		logger: l,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetCallbacks installs the command handlers. Must be called before
// StartListening.
func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Infof("Redis connection failed: %v", err)
		return fmt.Errorf("Redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts all Redis listeners after initialization is complete
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")

	// Start list command listeners for LPUSH commands
	r.wg.Add(6)
	go r.listCommandListener("led:set", r.handleSetCommand)
	go r.listCommandListener("led:toggle", r.handleToggleCommand)
	go r.listCommandListener("led:smooth", r.handleSmoothCommand)
	go r.listCommandListener("led:blink", r.handleBlinkCommand)
	go r.listCommandListener("led:blink-smooth", r.handleBlinkSmoothCommand)
	go r.listCommandListener("led:config", r.handleConfigCommand)

	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Use BRPOP with a short timeout to allow periodic context cancellation checks
			result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
			if err != nil {
				if err == redis.Nil {
					// Timeout elapsed, loop back to check context
					continue
				}
				if err == context.Canceled {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				continue
			}

			select {
			case <-r.ctx.Done():
				r.logger.Infof("Context cancelled, exiting %s listener", key)
				return
			default:
				if len(result) >= 2 { // BRPOP returns [key, value]
					value := result[1]
					r.logger.Debugf("Received command from %s: %s", key, value)
					if err := handler(value); err != nil {
						r.logger.Warnf("Error handling %s command: %v", key, err)
					}
				}
			}
		}
	}
}

func (r *RedisClient) handleSetCommand(value string) error {
	if r.callbacks.SetCallback == nil {
		return nil
	}
	cmd, err := parseSwitchCommand(value)
	if err != nil {
		r.logger.Infof("Invalid set command value: %s", value)
		return fmt.Errorf("invalid set command: %w", err)
	}
	return r.callbacks.SetCallback(cmd)
}

func (r *RedisClient) handleToggleCommand(value string) error {
	if r.callbacks.ToggleCallback == nil {
		return nil
	}
	if value == "" {
		r.logger.Infof("Empty toggle command")
		return fmt.Errorf("invalid toggle command: empty name")
	}
	return r.callbacks.ToggleCallback(value)
}

func (r *RedisClient) handleSmoothCommand(value string) error {
	if r.callbacks.SmoothCallback == nil {
		return nil
	}
	cmd, err := parseSwitchCommand(value)
	if err != nil {
		r.logger.Infof("Invalid smooth command value: %s", value)
		return fmt.Errorf("invalid smooth command: %w", err)
	}
	if cmd.Full {
		r.logger.Infof("Invalid smooth command action: %s", value)
		return fmt.Errorf("invalid smooth command: full-on/full-off not supported")
	}
	return r.callbacks.SmoothCallback(cmd)
}

func (r *RedisClient) handleBlinkCommand(value string) error {
	if r.callbacks.BlinkCallback == nil {
		return nil
	}
	cmd, err := parseBlinkCommand(value)
	if err != nil {
		r.logger.Infof("Invalid blink command value: %s", value)
		return fmt.Errorf("invalid blink command: %w", err)
	}
	return r.callbacks.BlinkCallback(cmd)
}

func (r *RedisClient) handleBlinkSmoothCommand(value string) error {
	if r.callbacks.BlinkSmoothCallback == nil {
		return nil
	}
	cmd, err := parseBlinkCommand(value)
	if err != nil {
		r.logger.Infof("Invalid blink-smooth command value: %s", value)
		return fmt.Errorf("invalid blink-smooth command: %w", err)
	}
	return r.callbacks.BlinkSmoothCallback(cmd)
}

func (r *RedisClient) handleConfigCommand(value string) error {
	if r.callbacks.ConfigCallback == nil {
		return nil
	}
	cmd, err := parseConfigCommand(value)
	if err != nil {
		r.logger.Infof("Invalid config command value: %s", value)
		return fmt.Errorf("invalid config command: %w", err)
	}
	return r.callbacks.ConfigCallback(cmd)
}

// publishHashSet is a helper that atomically updates hash fields and
// publishes a notification
func (r *RedisClient) publishHashSet(hash string, fields map[string]interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, fields)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishLedState publishes the observable state of one LED to its hash and
// notifies subscribers on the "led" channel.
func (r *RedisClient) PublishLedState(name string, duty float64, mode string, activeTime float64) error {
	r.logger.Debugf("Publishing LED state: %s duty=%.1f mode=%s", name, duty, mode)

	fields := map[string]interface{}{
		"duty":        fmt.Sprintf("%.1f", duty),
		"mode":        mode,
		"active-time": fmt.Sprintf("%.1f", activeTime),
	}
	if err := r.publishHashSet("led:"+name, fields, "led", name); err != nil {
		r.logger.Warnf("Failed to publish LED state for %s: %v", name, err)
		return err
	}
	return nil
}

func (r *RedisClient) PublishServiceState(state types.ServiceState) error {
	r.logger.Infof("Publishing service state: %s", state)
	timestamp := time.Now().Format(time.RFC3339)

	fields := map[string]interface{}{
		"state":           string(state),
		"state:timestamp": timestamp,
	}
	if err := r.publishHashSet("led-service", fields, "led-service", "state"); err != nil {
		r.logger.Warnf("Failed to publish service state: %v", err)
		return err
	}
	r.logger.Debugf("Successfully published service state with timestamp: %s", timestamp)
	return nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	// Wait for all goroutines to finish with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Infof("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
