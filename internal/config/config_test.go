package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"hereforus/apps/recommender/internal/config"
)

func setRequired(t *testing.T) {
	t.Setenv("CLOVASTUDIO_EMBEDDING_HOST", "clovastudio.apigw.example.com")
	t.Setenv("CLOVASTUDIO_MODEL_HOST", "https://clovastudio.stream.example.com")
}

func TestLoadConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "test-host")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
	assert.Equal(t, 1000, cfg.FoodPageSize)
	assert.Equal(t, 5, cfg.SearchLimit)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	setRequired(t)
	content := []byte("FESTIVAL_URL=http://upstream/festival")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "http://upstream/festival", cfg.FestivalURL)
}

func TestLoadConfig_MissingEmbeddingHost(t *testing.T) {
	t.Setenv("CLOVASTUDIO_EMBEDDING_HOST", "")
	t.Setenv("CLOVASTUDIO_MODEL_HOST", "https://clovastudio.stream.example.com")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrMissingRequired)
}

func TestLoadConfig_Tuning(t *testing.T) {
	setRequired(t)
	t.Setenv("FETCH_RETRY_CAP", "5")
	t.Setenv("INDEX_WAIT_TIMEOUT", "90s")
	t.Setenv("FOOD_PAGE_SIZE", "250")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 5, cfg.FetchRetryCap)
	assert.Equal(t, "1m30s", cfg.IndexWait.String())
	assert.Equal(t, 250, cfg.FoodPageSize)
}

func TestLoadConfig_InvalidPageSize(t *testing.T) {
	setRequired(t)
	t.Setenv("FOOD_PAGE_SIZE", "0")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrMissingRequired)
}
