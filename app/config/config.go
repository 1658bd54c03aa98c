package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Scratch  ScratchConfig  `mapstructure:"scratch"`
	Download DownloadConfig `mapstructure:"download"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Database DatabaseConfig `mapstructure:"database"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type ScratchConfig struct {
	Dir string `mapstructure:"dir"` // 临时文件目录，启动时重新创建
}

type DownloadConfig struct {
	BatchMax         int `mapstructure:"batch_max"`          // 批量下载的最大 URL 数量
	RetentionSeconds int `mapstructure:"retention_seconds"`  // 终态任务的保留秒数
	InfoCacheSeconds int `mapstructure:"info_cache_seconds"` // 媒体信息缓存秒数
}

type EngineConfig struct {
	YtdlpPath   string `mapstructure:"ytdlp_path"`   // yt-dlp 可执行文件路径
	FfmpegPath  string `mapstructure:"ffmpeg_path"`  // ffmpeg 可执行文件路径
	FfprobePath string `mapstructure:"ffprobe_path"` // ffprobe 可执行文件路径
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"` // 下载历史数据库文件路径
}

type CleanupConfig struct {
	Cron string `mapstructure:"cron"` // 定期清理的 cron 表达式
}

// Retention 终态任务保留时长
func (d DownloadConfig) Retention() time.Duration {
	return time.Duration(d.RetentionSeconds) * time.Second
}

// InfoCacheTTL 媒体信息缓存时长
func (d DownloadConfig) InfoCacheTTL() time.Duration {
	return time.Duration(d.InfoCacheSeconds) * time.Second
}

func Load() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// 临时目录默认配置
	viper.SetDefault("scratch.dir", "data/scratch")

	// 下载默认配置
	viper.SetDefault("download.batch_max", 50)
	viper.SetDefault("download.retention_seconds", 3600) // 1 小时
	viper.SetDefault("download.info_cache_seconds", 300)

	// 外部引擎默认配置
	viper.SetDefault("engine.ytdlp_path", "yt-dlp")
	viper.SetDefault("engine.ffmpeg_path", "ffmpeg")
	viper.SetDefault("engine.ffprobe_path", "ffprobe")

	// 数据库默认配置
	viper.SetDefault("database.path", "data/media-forge.db")

	// 每 30 分钟清理一次过期任务
	viper.SetDefault("cleanup.cron", "@every 30m")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.Scratch.Dir == "" {
		return fmt.Errorf("临时文件目录未设置")
	}
	if config.Download.BatchMax <= 0 {
		return fmt.Errorf("批量下载上限必须大于 0")
	}
	if config.Download.RetentionSeconds <= 0 {
		return fmt.Errorf("任务保留时间必须大于 0")
	}
	return nil
}
