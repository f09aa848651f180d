package broadcast

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var hostnameRegex = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*$`)

// Config describes one broadcast. It is copied into the session on start.
type Config struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	FilePath string `json:"filePath,omitempty"`
}

func (c Config) host() string {
	return strings.TrimSuffix(strings.TrimPrefix(c.Address, "["), "]")
}

// Target returns the RTP output URL, IPv6 hosts are bracketed.
func (c Config) Target() string {
	return "udp://" + net.JoinHostPort(c.host(), strconv.Itoa(c.Port))
}

func (c Config) Validate() error {
	if err := c.validateAddress(); err != nil {
		return err
	}

	if c.Port < 1 || c.Port > 65535 {
		return &InvalidConfigError{
			Field:  "port",
			Reason: fmt.Sprintf("%d is out of range 1-65535", c.Port),
		}
	}

	return c.validateFile()
}

func (c Config) validateAddress() error {
	if strings.TrimSpace(c.Address) == "" {
		return &InvalidConfigError{Field: "address", Reason: "must not be empty"}
	}

	host := c.host()
	if net.ParseIP(host) != nil {
		return nil
	}

	// IPv6 zones and other literals that ParseIP rejects land here too,
	// a numeric last label is a malformed IPv4 address, never a host name
	if strings.Contains(host, ":") || !hostnameRegex.MatchString(host) || numericLabel(host) {
		return &InvalidConfigError{
			Field:  "address",
			Reason: fmt.Sprintf("%q is not a valid host", c.Address),
		}
	}

	return nil
}

func numericLabel(host string) bool {
	label := host[strings.LastIndex(host, ".")+1:]
	return strings.Trim(label, "0123456789") == ""
}

func (c Config) validateFile() error {
	if c.FilePath == "" {
		return &InvalidConfigError{Field: "filePath", Reason: "must not be empty"}
	}

	info, err := os.Stat(c.FilePath)
	if err != nil {
		return &InvalidConfigError{Field: "filePath", Reason: err.Error()}
	}

	if !info.Mode().IsRegular() {
		return &InvalidConfigError{
			Field:  "filePath",
			Reason: fmt.Sprintf("%q is not a regular file", c.FilePath),
		}
	}

	f, err := os.Open(c.FilePath)
	if err != nil {
		return &InvalidConfigError{Field: "filePath", Reason: err.Error()}
	}

	return f.Close()
}

// EncoderArgs returns the fixed encoder argument template for this config.
func (c Config) EncoderArgs(globalArgs ...string) []string {
	args := append([]string{}, globalArgs...)
	return append(args,
		"-re", "-stream_loop", "-1", // real-time pacing, loop input forever
		"-i", c.FilePath,
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "g722",
		"-f", "rtp",
		c.Target(),
	)
}
