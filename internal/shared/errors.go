package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Plugin lifecycle errors
	ErrPluginNotFound       = fmt.Errorf("plugin not found")
	ErrPluginAlreadyRunning = fmt.Errorf("plugin already running")
	ErrPluginDisabled       = fmt.Errorf("plugin disabled")

	// Platform adapter errors
	ErrPlatformUnsupported = fmt.Errorf("platform unsupported")
	ErrNotInitialized      = fmt.Errorf("adapter not initialized")
	ErrDestroyed           = fmt.Errorf("adapter destroyed")

	// Messaging errors
	ErrChannelClosed   = fmt.Errorf("channel closed")
	ErrPeerGone        = fmt.Errorf("peer disconnected")
	ErrInvokeTimeout   = fmt.Errorf("invoke timed out")
	ErrNoInvokeHandler = fmt.Errorf("no invoke handler registered")

	// Lyrics errors
	ErrLyricsNotFound   = fmt.Errorf("lyrics not found")
	ErrProviderDisabled = fmt.Errorf("provider disabled")
)
