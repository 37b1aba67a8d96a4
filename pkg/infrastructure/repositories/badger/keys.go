package badger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// Key layout. Parts are joined with a NUL byte so ids may contain any
// printable character.
//
//	ing  <ingredient>                              Ingredient
//	lot  <lot id>                                  InventoryLot
//	lotidx <ingredient> <acquired> <lot id>        FIFO index, empty value
//	cons <event kind> <event id> <seq>             ConsumptionRecord
//	rec  <recipe>                                  Recipe with components
//	fu   <finished unit>                           FinishedUnit
//	prod <production>                              ProductionRecord
//	snap <production>                              RecipeSnapshot
//	meta lastlot | lastcons                        counters
const sep = "\x00"

const (
	prefixIngredient   = "ing"
	prefixLot          = "lot"
	prefixLotIndex     = "lotidx"
	prefixConsumption  = "cons"
	prefixRecipe       = "rec"
	prefixFinishedUnit = "fu"
	prefixProduction   = "prod"
	prefixSnapshot     = "snap"
	prefixMeta         = "meta"
)

func key(parts ...string) []byte {
	return []byte(strings.Join(parts, sep))
}

// prefix returns the scan prefix for all keys under parts
func prefix(parts ...string) []byte {
	return append(key(parts...), sep...)
}

func lotKey(id entities.LotID) []byte {
	return key(prefixLot, fmt.Sprintf("%020d", id))
}

// sortableTime encodes t so that byte order is time order. The sign bit is
// flipped so times before 1970 sort first.
func sortableTime(t time.Time) string {
	return fmt.Sprintf("%020d", uint64(t.UnixNano())^(1<<63))
}

func lotIndexKey(lot *entities.InventoryLot) []byte {
	return key(prefixLotIndex, string(lot.IngredientID), sortableTime(lot.AcquiredAt), fmt.Sprintf("%020d", lot.ID))
}

// lotIDFromIndex parses the last part of a lot index key
func lotIDFromIndex(k []byte) (entities.LotID, error) {
	i := bytes.LastIndex(k, []byte(sep))
	id, err := strconv.ParseInt(string(k[i+1:]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt lot index key %q: %w", k, err)
	}
	return entities.LotID(id), nil
}

// getJSON decodes the value at k into v. found is false when the key does
// not exist.
func getJSON(txn *dgbadger.Txn, k []byte, v any) (found bool, err error) {
	item, err := txn.Get(k)
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
	if err != nil {
		return false, fmt.Errorf("decode %q: %w", k, err)
	}
	return true, nil
}

func putJSON(txn *dgbadger.Txn, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", k, err)
	}
	return txn.Set(k, data)
}

// scan calls fn with every value under p, in key order
func scan(txn *dgbadger.Txn, p []byte, fn func(val []byte) error) error {
	opts := dgbadger.DefaultIteratorOptions
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// scanKeys calls fn with every key under p, in key order
func scanKeys(txn *dgbadger.Txn, p []byte, fn func(k []byte) error) error {
	opts := dgbadger.DefaultIteratorOptions
	opts.Prefix = p
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := fn(it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

// nextCounter increments and returns the counter at name. The counter is
// read and written inside txn, so a rolled back transaction leaves no gap.
func nextCounter(txn *dgbadger.Txn, name string) (int64, error) {
	var n int64
	if _, err := getJSON(txn, key(prefixMeta, name), &n); err != nil {
		return 0, err
	}
	n++
	return n, putJSON(txn, key(prefixMeta, name), n)
}

// raiseCounter moves the counter at name up to at least n
func raiseCounter(txn *dgbadger.Txn, name string, n int64) error {
	var current int64
	if _, err := getJSON(txn, key(prefixMeta, name), &current); err != nil {
		return err
	}
	if n <= current {
		return nil
	}
	return putJSON(txn, key(prefixMeta, name), n)
}
