package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tabpay/tab-server/pkg/config"
)

// ErrUnsuportedConversion indicates the wrapper does not implement conversion from the source type
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

// BoolConfig is a utility wrapper for a bool config
type BoolConfig struct {
	override     config.Config
	defaultValue bool

	stateMu   sync.RWMutex
	lastValue bool
}

// NewBoolConfig returns a new bool config utility wrapper
func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return &BoolConfig{
		override:     override,
		defaultValue: defaultValue,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *BoolConfig) GetSafe(ctx context.Context) (bool, error) {
	override, err := c.override.Get(ctx)
	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()
	if err == config.ErrNoValue {
		c.setLastValue(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}
	switch override := override.(type) {
	case []byte:
		newValue, err := strconv.ParseBool(string(override))
		if err != nil {
			return lastValue, err
		}
		c.setLastValue(newValue)
		return newValue, nil
	case bool:
		c.setLastValue(override)
		return override, nil
	default:
		return lastValue, ErrUnsuportedConversion
	}
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *BoolConfig) Get(ctx context.Context) bool {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *BoolConfig) Shutdown() {
	c.override.Shutdown()
}

func (c *BoolConfig) setLastValue(value bool) {
	c.stateMu.Lock()
	c.lastValue = value
	c.stateMu.Unlock()
}

// Uint64Config is a utility wrapper for a uint64 config
type Uint64Config struct {
	override     config.Config
	defaultValue uint64

	stateMu   sync.RWMutex
	lastValue uint64
}

// NewUint64Config returns a new uint64 config utility wrapper
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return &Uint64Config{
		override:     override,
		defaultValue: defaultValue,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *Uint64Config) GetSafe(ctx context.Context) (uint64, error) {
	override, err := c.override.Get(ctx)
	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()
	if err == config.ErrNoValue {
		c.setLastValue(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}
	switch override := override.(type) {
	case []byte:
		newValue, err := strconv.ParseUint(string(override), 10, 64)
		if err != nil {
			return lastValue, err
		}
		c.setLastValue(newValue)
		return newValue, nil
	case uint64:
		c.setLastValue(override)
		return override, nil
	default:
		return lastValue, ErrUnsuportedConversion
	}
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *Uint64Config) Get(ctx context.Context) uint64 {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *Uint64Config) Shutdown() {
	c.override.Shutdown()
}

func (c *Uint64Config) setLastValue(value uint64) {
	c.stateMu.Lock()
	c.lastValue = value
	c.stateMu.Unlock()
}

// StringConfig is a utility wrapper for a string config
type StringConfig struct {
	override     config.Config
	defaultValue string

	stateMu   sync.RWMutex
	lastValue string
}

// NewStringConfig returns a new string config utility wrapper
func NewStringConfig(override config.Config, defaultValue string) config.String {
	return &StringConfig{
		override:     override,
		defaultValue: defaultValue,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *StringConfig) GetSafe(ctx context.Context) (string, error) {
	override, err := c.override.Get(ctx)
	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()
	if err == config.ErrNoValue {
		c.setLastValue(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}
	switch override := override.(type) {
	case []byte:
		newValue := string(override)
		c.setLastValue(newValue)
		return newValue, nil
	case string:
		c.setLastValue(override)
		return override, nil
	default:
		return lastValue, ErrUnsuportedConversion
	}
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *StringConfig) Get(ctx context.Context) string {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *StringConfig) Shutdown() {
	c.override.Shutdown()
}

func (c *StringConfig) setLastValue(value string) {
	c.stateMu.Lock()
	c.lastValue = value
	c.stateMu.Unlock()
}

// DurationConfig is a utility wrapper for a time.Duration config
type DurationConfig struct {
	override     config.Config
	defaultValue time.Duration

	stateMu   sync.RWMutex
	lastValue time.Duration
}

// NewDurationConfig returns a new time.Duration config utility wrapper
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return &DurationConfig{
		override:     override,
		defaultValue: defaultValue,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *DurationConfig) GetSafe(ctx context.Context) (time.Duration, error) {
	override, err := c.override.Get(ctx)
	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()
	if err == config.ErrNoValue {
		c.setLastValue(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}
	switch override := override.(type) {
	case []byte:
		newValue, err := time.ParseDuration(string(override))
		if err != nil {
			return lastValue, err
		}
		c.setLastValue(newValue)
		return newValue, nil
	case time.Duration:
		c.setLastValue(override)
		return override, nil
	default:
		return lastValue, ErrUnsuportedConversion
	}
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *DurationConfig) Get(ctx context.Context) time.Duration {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *DurationConfig) Shutdown() {
	c.override.Shutdown()
}

func (c *DurationConfig) setLastValue(value time.Duration) {
	c.stateMu.Lock()
	c.lastValue = value
	c.stateMu.Unlock()
}
