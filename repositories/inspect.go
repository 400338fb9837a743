package repositories

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// InspectRow is a human readable view of one raw badger entry.
type InspectRow struct {
	Key       string `json:"key"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	EntityID  string `json:"entityId"`
	Detail    string `json:"detail"`
}

// Inspect lists the entries under prefix, decoded when the key belongs to a known record.
// Sequence keys are skipped. A non positive limit returns everything.
func Inspect(db *badger.DB, prefix string, limit int) ([]InspectRow, error) {
	rows := make([]InspectRow, 0)
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && len(rows) == limit {
				break
			}
			item := it.Item()
			key := string(item.Key())
			if strings.HasPrefix(key, "seq:") {
				continue
			}
			if err := item.Value(func(val []byte) error {
				rows = append(rows, DescribeRecord(key, val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inspect %q: %w", prefix, err)
	}
	return rows, nil
}

// DescribeRecord decodes a value according to its key prefix.
// Unknown keys and undecodable values fall back to a raw row.
func DescribeRecord(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:       key,
		Type:      "RAW",
		Timestamp: "--:--:--",
		EntityID:  "-",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	switch {
	case strings.HasPrefix(key, userPrefix):
		var record diskUser
		if err := unmarshal(val, &record); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "USER"
		row.Timestamp = time.Unix(0, record.CreatedAt).UTC().Format(time.DateTime)
		row.EntityID = strconv.FormatInt(record.ID, 10)
		row.Detail = record.Username
	case strings.HasPrefix(key, userIDPrefix):
		row.Type = "USER_INDEX"
		row.EntityID = strings.TrimLeft(strings.TrimPrefix(key, userIDPrefix), "0")
		row.Detail = "-> " + userPrefix + string(val)
	case strings.HasPrefix(key, "msg:"):
		var record diskMessage
		if err := unmarshal(val, &record); err != nil {
			row.Detail = "Error: unmarshal failed"
			return row
		}
		row.Type = "MESSAGE"
		row.Timestamp = time.Unix(0, record.At).UTC().Format(time.DateTime)
		row.EntityID = strconv.FormatInt(record.ID, 10)
		row.Detail = fmt.Sprintf("%d -> %d: %s", record.SenderID, record.ReceiverID, record.Content)
	}
	return row
}
