package config

import (
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/m1k1o/go-rtpcast/pkg/broadcast"
	"github.com/m1k1o/go-rtpcast/pkg/devices"
)

// Default configuration path
const DefaultBaseDir = "/etc/rtpcast"

type Broadcast struct {
	BaseDir string `yaml:"basedir"`

	FFmpegBinary  string   `yaml:"ffmpeg-binary"`
	FFprobeBinary string   `yaml:"ffprobe-binary"`
	GlobalArgs    []string `yaml:"global-args"`

	Address     string `yaml:"address"`
	Port        int    `yaml:"port"`
	DefaultFile string `yaml:"default-file"`
	MediaDir    string `yaml:"media-dir"`

	StopTimeout    time.Duration `yaml:"stop-timeout"`
	BenignWarnings []string      `yaml:"benign-warnings"`

	DeviceFormat string `yaml:"device-format"`
}

func (Broadcast) Init(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("basedir", "", "base directory for assets and media")
	if err := viper.BindPFlag("basedir", cmd.PersistentFlags().Lookup("basedir")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("ffmpeg-binary", "ffmpeg", "path to the ffmpeg encoder binary")
	if err := viper.BindPFlag("ffmpeg-binary", cmd.PersistentFlags().Lookup("ffmpeg-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("ffprobe-binary", "ffprobe", "path to the ffprobe binary used to inspect audio files")
	if err := viper.BindPFlag("ffprobe-binary", cmd.PersistentFlags().Lookup("ffprobe-binary")); err != nil {
		return err
	}

	cmd.PersistentFlags().StringSlice("global-args", []string{"-hide_banner", "-nostdin"}, "ffmpeg arguments prepended to the broadcast command")
	if err := viper.BindPFlag("global-args", cmd.PersistentFlags().Lookup("global-args")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("address", "172.17.3.255", "default destination address of the RTP broadcast")
	if err := viper.BindPFlag("address", cmd.PersistentFlags().Lookup("address")); err != nil {
		return err
	}

	cmd.PersistentFlags().Int("port", 4455, "default destination port of the RTP broadcast")
	if err := viper.BindPFlag("port", cmd.PersistentFlags().Lookup("port")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("default-file", "", "audio file broadcasted when none is selected (default <basedir>/assets/default.wav)")
	if err := viper.BindPFlag("default-file", cmd.PersistentFlags().Lookup("default-file")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("media-dir", "", "directory with selectable audio files (default <basedir>/media)")
	if err := viper.BindPFlag("media-dir", cmd.PersistentFlags().Lookup("media-dir")); err != nil {
		return err
	}

	cmd.PersistentFlags().Duration("stop-timeout", 5*time.Second, "how long to wait for the encoder to exit after interrupt before killing it, 0 waits forever")
	if err := viper.BindPFlag("stop-timeout", cmd.PersistentFlags().Lookup("stop-timeout")); err != nil {
		return err
	}

	cmd.PersistentFlags().StringSlice("benign-warnings", []string{"frame size not set"}, "encoder stderr messages that are not reported as warnings")
	if err := viper.BindPFlag("benign-warnings", cmd.PersistentFlags().Lookup("benign-warnings")); err != nil {
		return err
	}

	cmd.PersistentFlags().String("device-format", "dshow", "ffmpeg input device format used to list audio devices")
	if err := viper.BindPFlag("device-format", cmd.PersistentFlags().Lookup("device-format")); err != nil {
		return err
	}

	return nil
}

func (b *Broadcast) Set() {
	b.BaseDir = viper.GetString("basedir")
	if b.BaseDir == "" {
		if _, err := os.Stat(DefaultBaseDir); os.IsNotExist(err) {
			cwd, _ := os.Getwd()
			b.BaseDir = cwd
		} else {
			b.BaseDir = DefaultBaseDir
		}
	}

	b.FFmpegBinary = viper.GetString("ffmpeg-binary")
	b.FFprobeBinary = viper.GetString("ffprobe-binary")
	b.GlobalArgs = viper.GetStringSlice("global-args")

	b.Address = viper.GetString("address")
	b.Port = viper.GetInt("port")

	b.DefaultFile = viper.GetString("default-file")
	if b.DefaultFile == "" {
		b.DefaultFile = b.AbsPath("assets", "default.wav")
	}

	b.MediaDir = viper.GetString("media-dir")
	if b.MediaDir == "" {
		b.MediaDir = b.AbsPath("media")
	}

	b.StopTimeout = viper.GetDuration("stop-timeout")
	b.BenignWarnings = viper.GetStringSlice("benign-warnings")
	b.DeviceFormat = viper.GetString("device-format")
}

func (b *Broadcast) AbsPath(elem ...string) string {
	// prepend base path
	elem = append([]string{b.BaseDir}, elem...)
	return path.Join(elem...)
}

func (b *Broadcast) Options() broadcast.Options {
	return broadcast.Options{
		FFmpegBinary:   b.FFmpegBinary,
		GlobalArgs:     b.GlobalArgs,
		DefaultFile:    b.DefaultFile,
		StopTimeout:    b.StopTimeout,
		BenignWarnings: b.BenignWarnings,
	}
}

func (b *Broadcast) Devices() devices.Config {
	return devices.Config{
		FFmpegBinary: b.FFmpegBinary,
		Format:       b.DeviceFormat,
	}
}
