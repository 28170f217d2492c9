package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the optional viralcut.yaml. Zero values mean "not set" and are
// filled from defaults by Load.
type File struct {
	Paths     Paths     `yaml:"paths"`
	Selection Selection `yaml:"selection"`
	Compose   Compose   `yaml:"compose"`
	Services  Services  `yaml:"services"`
	Binaries  Binaries  `yaml:"binaries"`
	Logging   Logging   `yaml:"logging"`
}

type Paths struct {
	MainDir     string `yaml:"main_dir"`
	GameplayDir string `yaml:"gameplay_dir"`
	OutDir      string `yaml:"out_dir"`
	RunDir      bool   `yaml:"run_dir"`
	Discovery   string `yaml:"discovery"`
}

type Selection struct {
	WindowSec     float64 `yaml:"window_sec"`
	MaxClips      int     `yaml:"max_clips"`
	Workers       int     `yaml:"workers"`
	RPS           float64 `yaml:"rps"`
	Retries       int     `yaml:"retries"`
	OnWindowError string  `yaml:"on_window_error"`
	ASR           string  `yaml:"asr"`
	Scorer        string  `yaml:"scorer"`
}

type Compose struct {
	OnClipError string `yaml:"on_clip_error"`
	Subtitles   bool   `yaml:"subtitles"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	FPS         int    `yaml:"fps"`
	Preset      string `yaml:"preset"`
	CRF         int    `yaml:"crf"`
}

type Services struct {
	OpenAI     OpenAI     `yaml:"openai"`
	OpenRouter OpenRouter `yaml:"openrouter"`
	Gemini     Gemini     `yaml:"gemini"`
}

// Credentials come from the environment only.
type OpenAI struct {
	BaseURL      string   `yaml:"base_url"`
	ChatModel    string   `yaml:"chat_model"`
	ASRModel     string   `yaml:"asr_model"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type OpenRouter struct {
	BaseURL      string   `yaml:"base_url"`
	Model        string   `yaml:"model"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type Gemini struct {
	BaseURL      string   `yaml:"base_url"`
	Model        string   `yaml:"model"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

type Binaries struct {
	FFmpeg       string `yaml:"ffmpeg"`
	FFprobe      string `yaml:"ffprobe"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

type Logging struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
}

// Defaults returns the settings used when neither a file, the environment nor
// a flag supplies a value.
func Defaults() File {
	return File{
		Paths: Paths{
			MainDir:     "main_video",
			GameplayDir: "gameplay",
			OutDir:      "output",
			Discovery:   "first",
		},
		Selection: Selection{
			WindowSec:     45,
			MaxClips:      5,
			Workers:       1,
			OnWindowError: "abort",
			ASR:           "openai",
			Scorer:        "openai",
		},
		Compose: Compose{
			OnClipError: "continue",
			Width:       1080,
			Height:      1920,
			FPS:         30,
			Preset:      "veryfast",
			CRF:         20,
		},
		Services: Services{
			OpenAI: OpenAI{
				ChatModel: "gpt-4o",
				ASRModel:  "whisper-1",
			},
			OpenRouter: OpenRouter{
				BaseURL: "https://openrouter.ai",
				Model:   "openai/gpt-4o",
			},
			Gemini: Gemini{
				Model: "gemini-2.0-flash",
			},
		},
		Binaries: Binaries{
			FFmpeg:       "ffmpeg",
			FFprobe:      "ffprobe",
			WhisperBin:   ".cache/bin/whisper.cpp",
			WhisperModel: ".cache/models/ggml-base.bin",
		},
	}
}

// Load reads path over the defaults. An empty path searches the working
// directory; a missing default file is not an error, a missing explicit one
// is.
func Load(path string) (File, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func findConfigFile() string {
	for _, p := range []string{"viralcut.yaml", "viralcut.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
