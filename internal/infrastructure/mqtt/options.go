package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/mqtt-event-publisher/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// maxQoS is the maximum QoS level supported.
	maxQoS = 1

	// protocolVersion selects MQTT 3.1.1.
	protocolVersion = 4

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12

	// clientIDPrefix starts every generated client identifier.
	clientIDPrefix = "mqttpub-"

	// maxClientIDLength is the longest client ID every MQTT 3.1 broker must accept.
	maxClientIDLength = 23
)

// Options is the immutable connection snapshot shared by every connection
// attempt of one publisher. Build it once with BuildOptions.
type Options struct {
	brokerURL      string
	clientID       string
	connectTimeout time.Duration
	publishTimeout time.Duration
	paho           *pahomqtt.ClientOptions
}

// BrokerURL returns the broker address, e.g. "ssl://broker:8883".
func (o *Options) BrokerURL() string { return o.brokerURL }

// ClientID returns the configured or generated client identifier.
func (o *Options) ClientID() string { return o.clientID }

// ConnectTimeout returns how long a connection handshake may take.
func (o *Options) ConnectTimeout() time.Duration { return o.connectTimeout }

// PublishTimeout returns how long a single publish may wait for completion.
func (o *Options) PublishTimeout() time.Duration { return o.publishTimeout }

// BuildOptions creates the connection snapshot from configuration.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on the ssl setting)
//   - Client ID (generated when not configured)
//   - Authentication credentials (if provided)
//   - TLS configuration with optional client certificate and CA (if enabled)
//   - Clean session mode
//   - No library-level reconnect: the delivery loop owns retries
//
// TLS files are read here, so unreadable material is a startup error.
func BuildOptions(cfg config.MQTTConfig) (*Options, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = generateClientID()
	}

	scheme := "tcp"
	if cfg.SSL {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetProtocolVersion(protocolVersion)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// Clean session - no persistent session on the broker
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(cfg.GetConnectTimeout())
	opts.SetWriteTimeout(cfg.GetPublishTimeout())
	opts.SetKeepAlive(cfg.GetKeepAlive())
	opts.SetOrderMatters(true)

	if cfg.SSL {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return &Options{
		brokerURL:      brokerURL,
		clientID:       clientID,
		connectTimeout: cfg.GetConnectTimeout(),
		publishTimeout: cfg.GetPublishTimeout(),
		paho:           opts,
	}, nil
}

// buildTLSConfig loads the client key pair and CA pool when configured.
// Without them the system roots verify the broker certificate.
func buildTLSConfig(cfg config.MQTTConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tlsMinVersion,
		ServerName: cfg.Host,
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		pair, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: loading client certificate: %w", ErrInvalidTLS, err)
		}
		tlsConfig.Certificates = []tls.Certificate{pair}
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading CA file: %w", ErrInvalidTLS, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates found in %s", ErrInvalidTLS, cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// generateClientID returns a random identifier within the MQTT 3.1 length limit.
func generateClientID() string {
	id := clientIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:maxClientIDLength]
}
