package recommend_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"hereforus/apps/recommender/features/recommend"
	"hereforus/apps/recommender/internal/adapter/clova"
	"hereforus/apps/recommender/internal/index"
)

func newHandler(embedder *MockEmbedder, searcher *MockSearcher, completer *MockCompleter) *recommend.Handler {
	s := recommend.NewService(embedder, searcher, completer, nil, opts())
	return recommend.NewHandler(s)
}

func stubRetrieval(embedder *MockEmbedder, searcher *MockSearcher) {
	embedder.On("Embed", mock.Anything, mock.Anything).Return(make([]float32, clova.Dim), nil)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]index.SearchHit{{Collection: "food_x", Distance: 0.8, Text: "음식점"}}, nil)
}

func TestRecommendHandler_KeywordArray(t *testing.T) {
	embedder := new(MockEmbedder)
	searcher := new(MockSearcher)
	completer := new(MockCompleter)
	stubRetrieval(embedder, searcher)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(messages []clova.Message) bool {
		return messages[2].Content == "야경, 데이트"
	}), mock.Anything).Return("추천", nil)

	handler := newHandler(embedder, searcher, completer)
	req := httptest.NewRequest(http.MethodPost, "/course", strings.NewReader(`{"keyword": ["야경", "데이트"]}`))
	rec := httptest.NewRecorder()
	handler.Recommend(recommend.ModeCourse)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result recommend.Result
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "추천", result.Response)
	assert.Len(t, result.Reference, 2)
	completer.AssertExpectations(t)
}

func TestRecommendHandler_KeywordString(t *testing.T) {
	embedder := new(MockEmbedder)
	searcher := new(MockSearcher)
	completer := new(MockCompleter)
	stubRetrieval(embedder, searcher)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(messages []clova.Message) bool {
		return messages[2].Content == "야경 데이트"
	}), mock.Anything).Return("추천", nil)

	handler := newHandler(embedder, searcher, completer)
	req := httptest.NewRequest(http.MethodPost, "/course", strings.NewReader(`{"keyword": "야경 데이트"}`))
	rec := httptest.NewRecorder()
	handler.Recommend(recommend.ModeCourse)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	completer.AssertExpectations(t)
}

func TestRecommendHandler_MissingKeyword(t *testing.T) {
	handler := newHandler(new(MockEmbedder), new(MockSearcher), new(MockCompleter))
	req := httptest.NewRequest(http.MethodPost, "/course", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.Recommend(recommend.ModeCourse)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestRecommendHandler_MalformedBody(t *testing.T) {
	handler := newHandler(new(MockEmbedder), new(MockSearcher), new(MockCompleter))
	req := httptest.NewRequest(http.MethodPost, "/course", strings.NewReader(`{"keyword":`))
	rec := httptest.NewRecorder()
	handler.Recommend(recommend.ModeCourse)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendHandler_CompletionFailure(t *testing.T) {
	embedder := new(MockEmbedder)
	searcher := new(MockSearcher)
	completer := new(MockCompleter)
	stubRetrieval(embedder, searcher)
	completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("", &clova.CompletionError{Detail: "stream closed"})

	handler := newHandler(embedder, searcher, completer)
	req := httptest.NewRequest(http.MethodPost, "/course", strings.NewReader(`{"keyword": ["데이트"]}`))
	rec := httptest.NewRecorder()
	handler.Recommend(recommend.ModeCourse)(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "COMPLETION_FAILED")
}

func TestDateHandler(t *testing.T) {
	embedder := new(MockEmbedder)
	searcher := new(MockSearcher)
	completer := new(MockCompleter)
	stubRetrieval(embedder, searcher)
	completer.On("Complete", mock.Anything, mock.MatchedBy(func(messages []clova.Message) bool {
		return messages[2].Content == "시간대: 저녁, 위치: 중구, 분위기: 조용한"
	}), mock.Anything).Return("데이트 코스", nil)

	handler := newHandler(embedder, searcher, completer)
	body := `{"time": "저녁", "location": "중구", "mood": "조용한"}`
	req := httptest.NewRequest(http.MethodPost, "/date", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Date(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	completer.AssertExpectations(t)
}

func TestDateHandler_MissingSlots(t *testing.T) {
	handler := newHandler(new(MockEmbedder), new(MockSearcher), new(MockCompleter))
	req := httptest.NewRequest(http.MethodPost, "/date", strings.NewReader(`{"time": "저녁"}`))
	rec := httptest.NewRecorder()
	handler.Date(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}
