package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("DEEPGRAM_API_KEY")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DEEPGRAM_API_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}

	if cfg.DeepgramModel != "nova-2-medical" {
		t.Errorf("Expected default DeepgramModel 'nova-2-medical', got '%s'", cfg.DeepgramModel)
	}

	if cfg.DeepgramLanguage != "en-US" {
		t.Errorf("Expected default DeepgramLanguage 'en-US', got '%s'", cfg.DeepgramLanguage)
	}

	if cfg.WorkerCount != 4 {
		t.Errorf("Expected default WorkerCount 4, got %d", cfg.WorkerCount)
	}

	if cfg.ReorderTimeoutMS != 5000 {
		t.Errorf("Expected default ReorderTimeoutMS 5000, got %d", cfg.ReorderTimeoutMS)
	}

	if cfg.PhraseTimeLimitMS != 10000 {
		t.Errorf("Expected default PhraseTimeLimitMS 10000, got %d", cfg.PhraseTimeLimitMS)
	}

	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}

	if cfg.VADEnergyThreshold != 500.0 {
		t.Errorf("Expected default VADEnergyThreshold 500.0, got %f", cfg.VADEnergyThreshold)
	}

	if cfg.RefineModel != "gpt-3.5-turbo" {
		t.Errorf("Expected default RefineModel 'gpt-3.5-turbo', got '%s'", cfg.RefineModel)
	}

	if cfg.StructuredModel != "gpt-4o" {
		t.Errorf("Expected default StructuredModel 'gpt-4o', got '%s'", cfg.StructuredModel)
	}
}

func TestLoad_InvalidWorkerCount(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("WORKER_COUNT", "0")
	defer os.Unsetenv("DEEPGRAM_API_KEY")
	defer os.Unsetenv("WORKER_COUNT")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when WORKER_COUNT is zero")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")
	defer os.Unsetenv("OPENAI_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}
