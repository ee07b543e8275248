package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// LoadMedicines ingests the CSV catalog into the medicines table, ignoring
// duplicates. Expected columns: name, brand, dosage, category, price,
// stock, prescription.
func LoadMedicines(db *sqlx.DB, csvPath string, log *zap.Logger) {
	file, err := os.Open(csvPath)
	if err != nil {
		log.Info("no medicine catalog to seed", zap.String("path", csvPath), zap.Error(err))
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		log.Warn("unable to read medicine header", zap.Error(err))
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Warn("unable to start medicine seed transaction", zap.Error(err))
		return
	}
	stmt, err := tx.Preparex(`INSERT OR IGNORE INTO medicines (name, brand, dosage, category, price, stock, prescription) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Warn("unable to prepare medicine insert", zap.Error(err))
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("unable to read medicine row", zap.Error(err))
			continue
		}
		if len(record) < 7 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil || price < 0 {
			continue
		}
		stock, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
		if err != nil || stock < 0 {
			continue
		}
		prescription := strings.EqualFold(strings.TrimSpace(record[6]), "yes") ||
			strings.TrimSpace(record[6]) == "1" ||
			strings.EqualFold(strings.TrimSpace(record[6]), "true")

		if _, err := stmt.Exec(name, strings.TrimSpace(record[1]), strings.TrimSpace(record[2]), strings.TrimSpace(record[3]), price, stock, prescription); err != nil {
			log.Warn("unable to insert medicine", zap.String("name", name), zap.Error(err))
		} else {
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		log.Warn("unable to commit medicine seed", zap.Error(err))
	} else {
		log.Info("seeded medicine catalog", zap.Int("rows", rows))
	}
}
