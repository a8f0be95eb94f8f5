package repositories

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const TaskTable = "tugas"

// TaskRecord is one row of the tugas table with an explicit column mapping.
type TaskRecord struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Subject     string     `gorm:"column:matkul"`
	Description string     `gorm:"column:deskripsi"`
	Deadline    DateString `gorm:"column:deadline"`
	Priority    string     `gorm:"column:prioritas"`
	Status      string     `gorm:"column:status"`
}

func (TaskRecord) TableName() string {
	return TaskTable
}

// DateString is a deadline column holding YYYY-MM-DD text. Drivers that decode
// DATE columns into time.Time are folded back into the canonical text form.
type DateString string

const dateLayout = "2006-01-02"

func (d *DateString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = DateString(v.Format(dateLayout))
	case string:
		*d = DateString(v)
	case []byte:
		*d = DateString(v)
	default:
		return fmt.Errorf("cannot scan %T into DateString", src)
	}
	return nil
}

func (d DateString) Value() (driver.Value, error) {
	return string(d), nil
}
