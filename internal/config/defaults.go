package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Telegram: TelegramConfig{
			ParseMode: "Markdown",
		},
		Brain: BrainConfig{
			APIBase: "https://generativelanguage.googleapis.com/v1beta",
			Models: []string{
				"gemini-2.5-pro",
				"gemini-1.5-pro",
				"gemini-2.0-flash",
				"gemini-1.5-flash",
			},
		},
		Art: ArtConfig{
			APIBase:         "https://api.replicate.com/v1",
			Model:           "black-forest-labs/flux-1.1-pro",
			AspectRatio:     "16:9",
			SafetyTolerance: 5,
		},
		Speech: SpeechConfig{
			Model: "eleven_multilingual_v2",
		},
		Search: SearchConfig{
			Enabled:    true,
			MaxResults: 3,
		},
		Store: StoreConfig{
			DBPath: "~/.vivekabot/ledger.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9091",
		},
	}
}
