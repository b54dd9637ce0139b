package recommend

import (
	"fmt"
	"strings"

	"hereforus/apps/recommender/internal/adapter/clova"
	"hereforus/apps/recommender/internal/index"
)

// Mode selects the system instruction and the collections searched for one
// recommendation request.
type Mode string

const (
	// ModeCourse recommends one restaurant, one event and one sight.
	ModeCourse Mode = "course"
	// ModeItinerary returns a fixed five-place day plan as strict JSON.
	ModeItinerary Mode = "itinerary"
	// ModeDate builds a date course from time, location and mood slots.
	ModeDate Mode = "date"
	// ModeFestFood restricts the reference to festivals and restaurants.
	ModeFestFood Mode = "festfood"
)

const coursePrompt = "- 음식점, 행사, 관광 명소 중 각 1개씩, 총 3개의 장소를 추천해야 합니다.\n\n" +
	"- 음식점은 `reference`의 정보에 기반하여 추천하며, **행사는 영화, 공연, 축제 중 사용자가 입력한 키워드에 맞는 항목을 `reference`에서 추천**합니다.\n\n" +
	"- 관광 명소는 사용자가 입력한 키워드(예: 분위기, 활동, 테마, 시간대 등)를 반영하여 AI가 추천합니다.\n\n" +
	"- '영화' 키워드를 입력한 경우에는 `reference`에서 최신 개봉 영화 또는 높은 박스오피스 순위의 영화를 추천합니다.\n\n" +
	"- 응답 형식:\n" +
	"  예: '중구에서 저녁에 실내에서 조용히 즐길 수 있는 음식점과 영화, 명소들을 추천해 드리겠습니다.'\n\n" +
	"  1. **음식점**: [음식점 이름] - 상세 설명만, 주소 제외\n\n" +
	"  2. **행사**: [영화/공연/축제 이름] - 상세 설명만\n\n" +
	"  3. **관광 명소**: [관광 명소 이름] - 상세 설명만\n\n" +
	"- 각 장소에 대해 풍부한 설명을 제공하며, **주소나 위치 정보는 포함하지 않습니다.**\n\n" +
	"- 반드시 음식점, 행사, 관광 명소 3가지를 포함한 추천을 제공합니다."

const itineraryPrompt = "- 하루 일정으로 방문할 장소를 정확히 5곳 추천해야 합니다.\n\n" +
	"- 음식점과 행사(영화, 공연, 축제)는 반드시 `reference`의 정보에서 선택하며, 나머지 장소는 사용자의 키워드를 반영하여 AI가 추천합니다.\n\n" +
	"- 응답은 설명 없이 아래 JSON 형식만 출력합니다:\n" +
	"  {\"places\": [{\"order\": 1, \"name\": \"장소 이름\", \"category\": \"음식점|행사|명소\", \"description\": \"상세 설명\"}, ...]}\n\n" +
	"- `places` 배열의 길이는 반드시 5이며, `order`는 방문 순서입니다.\n\n" +
	"- 주소나 위치 정보는 `description`에 포함하지 않습니다."

const datePrompt = "- 사용자가 입력한 시간대, 위치, 분위기에 맞는 데이트 코스를 추천해야 합니다.\n\n" +
	"- 음식점과 행사(영화, 공연, 축제)는 `reference`의 정보에 기반하여 추천합니다.\n\n" +
	"- 관광 명소는 입력된 분위기와 시간대를 반영하여 AI가 추천합니다.\n\n" +
	"- 응답 형식:\n" +
	"  1. **음식점**: [음식점 이름] - 상세 설명만, 주소 제외\n\n" +
	"  2. **행사**: [영화/공연/축제 이름] - 상세 설명만\n\n" +
	"  3. **관광 명소**: [관광 명소 이름] - 상세 설명만\n\n" +
	"- 입력된 위치에서 이동하기 좋은 순서로 추천하며, **주소나 위치 정보는 포함하지 않습니다.**"

const festFoodPrompt = "- 축제 1곳과 그 주변에서 함께 가기 좋은 음식점 2곳을 추천해야 합니다.\n\n" +
	"- 축제와 음식점 모두 반드시 `reference`의 정보에서만 선택합니다.\n\n" +
	"- 응답 형식:\n" +
	"  1. **축제**: [축제 이름] - 상세 설명만\n\n" +
	"  2. **음식점**: [음식점 이름] - 상세 설명만\n\n" +
	"  3. **음식점**: [음식점 이름] - 상세 설명만\n\n" +
	"- 각 장소에 대해 풍부한 설명을 제공하며, **주소나 위치 정보는 포함하지 않습니다.**"

var systemPrompts = map[Mode]string{
	ModeCourse:    coursePrompt,
	ModeItinerary: itineraryPrompt,
	ModeDate:      datePrompt,
	ModeFestFood:  festFoodPrompt,
}

// DateSlots carries the structured input of the date mode.
type DateSlots struct {
	Time     string `json:"time"`
	Location string `json:"location"`
	Mood     string `json:"mood"`
}

func (s DateSlots) UserTurn() string {
	return fmt.Sprintf("시간대: %s, 위치: %s, 분위기: %s", s.Time, s.Location, s.Mood)
}

// BuildPrompt assembles the ordered message sequence for one request: the
// mode's system instruction, one reference message, then the user turn. It
// does no filtering or ranking of its own.
func BuildPrompt(mode Mode, reference []index.SearchHit, userTurn string) ([]clova.Message, error) {
	system, ok := systemPrompts[mode]
	if !ok {
		return nil, fmt.Errorf("unknown recommendation mode %q", mode)
	}

	texts := make([]string, 0, len(reference))
	for _, hit := range reference {
		texts = append(texts, hit.Text)
	}

	return []clova.Message{
		{Role: "system", Content: system},
		{Role: "system", Content: "reference: " + strings.Join(texts, "\n")},
		{Role: "user", Content: userTurn},
	}, nil
}
