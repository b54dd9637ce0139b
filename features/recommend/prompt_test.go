package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hereforus/apps/recommender/internal/index"
)

func TestBuildPrompt(t *testing.T) {
	reference := []index.SearchHit{
		{Collection: "festival_hereforus", Text: "축제 A"},
		{Collection: "food_hereforus", Text: "음식점 B"},
	}

	tests := []struct {
		name string
		mode Mode
	}{
		{"course", ModeCourse},
		{"itinerary", ModeItinerary},
		{"date", ModeDate},
		{"festfood", ModeFestFood},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, err := BuildPrompt(tt.mode, reference, "야경, 데이트")
			assert.NoError(t, err)
			assert.Len(t, messages, 3)
			assert.Equal(t, "system", messages[0].Role)
			assert.Equal(t, systemPrompts[tt.mode], messages[0].Content)
			assert.Equal(t, "system", messages[1].Role)
			assert.Equal(t, "reference: 축제 A\n음식점 B", messages[1].Content)
			assert.Equal(t, "user", messages[2].Role)
			assert.Equal(t, "야경, 데이트", messages[2].Content)
		})
	}
}

func TestBuildPrompt_EmptyReference(t *testing.T) {
	messages, err := BuildPrompt(ModeCourse, nil, "데이트")
	assert.NoError(t, err)
	assert.Equal(t, "reference: ", messages[1].Content)
}

func TestBuildPrompt_UnknownMode(t *testing.T) {
	_, err := BuildPrompt(Mode("picnic"), nil, "데이트")
	assert.Error(t, err)
}

func TestDateSlots_UserTurn(t *testing.T) {
	slots := DateSlots{Time: "저녁", Location: "중구", Mood: "조용한"}
	assert.Equal(t, "시간대: 저녁, 위치: 중구, 분위기: 조용한", slots.UserTurn())
}

func TestJoinKeywords(t *testing.T) {
	assert.Equal(t, "야경, 데이트", JoinKeywords([]string{"야경", "데이트"}))
	assert.Equal(t, "야경", JoinKeywords([]string{"야경"}))
	assert.Equal(t, "", JoinKeywords(nil))
}
