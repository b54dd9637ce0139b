// Package encode renders one raw catalog record into the canonical single-line
// text that is both embedded and later injected verbatim into prompts.
package encode

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder stands in for any absent field so encoding never fails.
const Placeholder = "정보없음"

// Chunk is one unit of embeddable text derived from a single record.
// ID is set only for domains with externally supplied primary keys.
// Source duplicates Text for domains that store a traceability copy.
type Chunk struct {
	ID     string
	Text   string
	Source string
}

// FoodRecord mirrors the upstream food table row.
type FoodRecord struct {
	ID            int64
	Title         string
	PhoneNumber   string
	GuName        string
	Address       string
	GpsX          float64
	GpsY          float64
	MajorCategory string
	SubCategory   string
}

// Festival encodes one festival record fetched from the bulk endpoint.
func Festival(rec map[string]any) Chunk {
	text := strings.Join([]string{
		"category: festival",
		"title: " + field(rec, "TITLE"),
		"place 장소: " + field(rec, "PLACE"),
		"guName: " + field(rec, "GUNAME"),
		"start_date: " + field(rec, "STRTDATE"),
		"end_date: " + field(rec, "END_DATE"),
		"link: " + field(rec, "ORG_LINK"),
		"x_coordinates: " + field(rec, "LAT"),
		"y_coordinates: " + field(rec, "LOT"),
	}, ", ")
	return Chunk{Text: text, Source: text}
}

// Movie encodes one box-office record.
func Movie(rec map[string]any) Chunk {
	text := strings.Join([]string{
		"카테고리: 영화",
		"id: " + field(rec, "movieCd"),
		"영화 제목: " + field(rec, "movieNm"),
		"박스오피스 순위: " + field(rec, "rank"),
		"개봉 일자: " + field(rec, "openDt"),
		"누적 관객수: " + field(rec, "audiAcc"),
	}, ", ")
	return Chunk{Text: text, Source: text}
}

// Performance encodes one performance record. The upstream id becomes the
// chunk id and later the collection's string primary key.
func Performance(rec map[string]any) Chunk {
	text := strings.Join([]string{
		"카테고리: 공연",
		"공연명: " + field(rec, "title"),
		"공연 장소: " + field(rec, "place"),
		"자치구: " + field(rec, "guName"),
		"시작일: " + field(rec, "startDate"),
		"종료일: " + field(rec, "endDate"),
		"장르: " + field(rec, "genre"),
	}, ", ")
	id := field(rec, "id")
	if id == Placeholder {
		id = ""
	}
	return Chunk{ID: id, Text: text}
}

// Food encodes one food table row.
func Food(rec FoodRecord) Chunk {
	text := strings.Join([]string{
		"카테고리: 음식점",
		"장소명: " + orPlaceholder(rec.Title),
		"자치구: " + orPlaceholder(rec.GuName),
		"상세 주소: " + orPlaceholder(rec.Address),
		"전화번호: " + orPlaceholder(rec.PhoneNumber),
		"업종명: " + orPlaceholder(rec.MajorCategory),
		"세부 업종: " + orPlaceholder(rec.SubCategory),
		fmt.Sprintf("위치: (%s, %s)", coord(rec.GpsX), coord(rec.GpsY)),
	}, ", ")
	return Chunk{Text: text}
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}

func coord(v float64) string {
	if v == 0 {
		return Placeholder
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// field renders one loosely typed record value, tolerating absent keys,
// nils, and the number/string ambiguity of upstream JSON.
func field(rec map[string]any, key string) string {
	v, ok := rec[key]
	if !ok || v == nil {
		return Placeholder
	}
	switch t := v.(type) {
	case string:
		return orPlaceholder(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return orPlaceholder(fmt.Sprint(t))
	}
}
