package configure

import (
	"bytes"
	"os"
	"path"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func checkErr(err error) {
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
}

// Defaults is the configuration used before any file, flag or env is applied.
func Defaults() Config {
	cfg := Config{
		LogLevel:     "info",
		Config:       "config.yaml",
		WorkingDir:   path.Join(os.TempDir(), "compressor"),
		CwebpPath:    "cwebp",
		PollInterval: 50 * time.Millisecond,
	}

	cfg.Compress.MaxDimension = 2000
	cfg.Compress.Concurrency = 2
	cfg.Compress.Jpeg = true
	cfg.Compress.Webp = true
	cfg.Compress.FilenameTemplate = "{name}_{fmt}_{q}.{ext}"
	cfg.Compress.Preset = "balanced"

	cfg.Export.Dir = "."
	cfg.Export.Zoom = 4
	cfg.Export.Diameter = 200

	cfg.Rmq.UpdateQueueName = "compressor-updates"

	return cfg
}

func New() *Config {
	config := viper.New()
	config.SetConfigType("yaml")

	b, err := json.Marshal(Defaults())

	checkErr(err)
	tmp := viper.New()
	tmp.SetConfigType("json")
	checkErr(tmp.ReadConfig(bytes.NewBuffer(b)))
	checkErr(config.MergeConfigMap(tmp.AllSettings()))

	pflag.String("config", "config.yaml", "Config file location")
	pflag.Bool("noheader", false, "Disable the startup header")
	pflag.String("log_level", "info", "Log level (debug, info, warn, error)")
	pflag.String("preset", "balanced", "Quality preset (small, balanced, high)")
	pflag.Int("concurrency", 2, "Images compressed at the same time")
	pflag.Int("max_dimension", 2000, "Long edge cap in pixels, 0 keeps the original size")
	pflag.Bool("no_jpeg", false, "Do not emit JPEG outputs")
	pflag.Bool("no_webp", false, "Do not emit WebP outputs")
	pflag.String("out", ".", "Directory the archive is written to")
	pflag.String("format", "", "Only archive this output format (jpeg, webp)")
	pflag.Bool("heatmaps", false, "Write a difference heatmap per best result")
	pflag.Bool("lens", false, "Write a magnifier lens per best result")
	pflag.Parse()

	checkErr(config.BindPFlag("config", pflag.Lookup("config")))
	checkErr(config.BindPFlag("noheader", pflag.Lookup("noheader")))
	checkErr(config.BindPFlag("log_level", pflag.Lookup("log_level")))
	checkErr(config.BindPFlag("compress.preset", pflag.Lookup("preset")))
	checkErr(config.BindPFlag("compress.concurrency", pflag.Lookup("concurrency")))
	checkErr(config.BindPFlag("compress.max_dimension", pflag.Lookup("max_dimension")))
	checkErr(config.BindPFlag("export.dir", pflag.Lookup("out")))
	checkErr(config.BindPFlag("export.format", pflag.Lookup("format")))
	checkErr(config.BindPFlag("export.heatmaps", pflag.Lookup("heatmaps")))
	checkErr(config.BindPFlag("export.lens", pflag.Lookup("lens")))

	config.SetConfigFile(config.GetString("config"))
	if err := config.ReadInConfig(); err == nil {
		checkErr(config.MergeInConfig())
	}

	cfg := Config{}

	config.SetEnvPrefix("COMPRESSOR")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AllowEmptyEnv(true)
	config.AutomaticEnv()

	checkErr(config.Unmarshal(&cfg))

	// negative flags only ever switch a format off
	if noJpeg, _ := pflag.CommandLine.GetBool("no_jpeg"); noJpeg {
		cfg.Compress.Jpeg = false
	}
	if noWebp, _ := pflag.CommandLine.GetBool("no_webp"); noWebp {
		cfg.Compress.Webp = false
	}

	cfg.Inputs = append(cfg.Inputs, pflag.Args()...)

	initLogging(cfg.LogLevel, cfg.NoLogs)

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debug("config: ", spew.Sdump(cfg))
	}

	return &cfg
}

type Config struct {
	LogLevel string `json:"log_level,omitempty" mapstructure:"log_level,omitempty"`
	Config   string `json:"config,omitempty" mapstructure:"config,omitempty"`
	NoHeader bool   `json:"noheader,omitempty" mapstructure:"noheader,omitempty"`
	NoLogs   bool   `json:"nologs,omitempty" mapstructure:"nologs,omitempty"`

	// Aws
	Aws struct {
		AccessToken string `json:"access_token,omitempty" mapstructure:"access_token,omitempty"`
		SecretKey   string `json:"secret_key,omitempty" mapstructure:"secret_key,omitempty"`
		Region      string `json:"region,omitempty" mapstructure:"region,omitempty"`
		Endpoint    string `json:"endpoint,omitempty" mapstructure:"endpoint,omitempty"`
	} `json:"aws,omitempty" mapstructure:"aws,omitempty"`

	Rmq struct {
		ServerURL       string `json:"server_url,omitempty" mapstructure:"server_url,omitempty"`
		UpdateQueueName string `json:"update_queue_name,omitempty" mapstructure:"update_queue_name,omitempty"`
	} `json:"rmq,omitempty" mapstructure:"rmq,omitempty"`

	Compress struct {
		MaxDimension     int    `json:"max_dimension" mapstructure:"max_dimension"`
		Concurrency      int    `json:"concurrency,omitempty" mapstructure:"concurrency,omitempty"`
		Jpeg             bool   `json:"jpeg" mapstructure:"jpeg"`
		Webp             bool   `json:"webp" mapstructure:"webp"`
		FilenameTemplate string `json:"filename_template,omitempty" mapstructure:"filename_template,omitempty"`
		Preset           string `json:"preset,omitempty" mapstructure:"preset,omitempty"`
	} `json:"compress,omitempty" mapstructure:"compress,omitempty"`

	Export struct {
		Dir       string  `json:"dir,omitempty" mapstructure:"dir,omitempty"`
		Format    string  `json:"format,omitempty" mapstructure:"format,omitempty"`
		Bucket    string  `json:"bucket,omitempty" mapstructure:"bucket,omitempty"`
		KeyFolder string  `json:"key_folder,omitempty" mapstructure:"key_folder,omitempty"`
		Heatmaps  bool    `json:"heatmaps,omitempty" mapstructure:"heatmaps,omitempty"`
		Lens      bool    `json:"lens,omitempty" mapstructure:"lens,omitempty"`
		Zoom      float64 `json:"zoom,omitempty" mapstructure:"zoom,omitempty"`
		Diameter  int     `json:"diameter,omitempty" mapstructure:"diameter,omitempty"`
	} `json:"export,omitempty" mapstructure:"export,omitempty"`

	Inputs []string `json:"inputs,omitempty" mapstructure:"inputs,omitempty"`

	WorkingDir   string        `json:"working_dir,omitempty" mapstructure:"working_dir,omitempty"`
	CwebpPath    string        `json:"cwebp_path,omitempty" mapstructure:"cwebp_path,omitempty"`
	PollInterval time.Duration `json:"poll_interval,omitempty" mapstructure:"poll_interval,omitempty"`
}
