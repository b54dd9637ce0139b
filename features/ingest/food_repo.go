package ingest

import (
	"context"
	"database/sql"

	"hereforus/apps/recommender/internal/encode"
	"hereforus/apps/recommender/internal/fetch"
)

// FoodRepo reads the upstream food table. The table is owned elsewhere;
// this repo only pages through it.
type FoodRepo struct {
	db *sql.DB
}

func NewFoodRepo(db *sql.DB) *FoodRepo {
	return &FoodRepo{db: db}
}

func (r *FoodRepo) FetchPage(ctx context.Context, limit, offset int) ([]encode.FoodRecord, error) {
	query := `SELECT id, title, phoneNumber, guName, address, gpsX, gpsY, majorCategory, subCategory FROM food LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, &fetch.Error{Domain: string(Food), Detail: err.Error()}
	}
	defer rows.Close()

	var records []encode.FoodRecord
	for rows.Next() {
		var (
			rec        encode.FoodRecord
			phone      sql.NullString
			guName     sql.NullString
			address    sql.NullString
			gpsX, gpsY sql.NullFloat64
			major, sub sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &phone, &guName, &address, &gpsX, &gpsY, &major, &sub); err != nil {
			return nil, &fetch.Error{Domain: string(Food), Detail: err.Error()}
		}
		rec.PhoneNumber = phone.String
		rec.GuName = guName.String
		rec.Address = address.String
		rec.GpsX = gpsX.Float64
		rec.GpsY = gpsY.Float64
		rec.MajorCategory = major.String
		rec.SubCategory = sub.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &fetch.Error{Domain: string(Food), Detail: err.Error()}
	}
	return records, nil
}
