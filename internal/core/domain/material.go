package domain

import "time"

type DictStatus string

const (
	DictStatusHit        DictStatus = "hit"
	DictStatusNoMatch    DictStatus = "no_match"
	DictStatusFetchError DictStatus = "dict_fetch_error"
	DictStatusUnknown    DictStatus = "unknown"
)

// DictionaryRecord is one material row of the JAN dictionary.
type DictionaryRecord struct {
	ProductName                string `json:"product_name"`
	ManufacturerName           string `json:"manufacturer_name"`
	ProductNo                  string `json:"product_no"`
	ProductSta                 string `json:"product_sta"`
	TokuteiName                string `json:"tokutei_name"`
	TotalReimbursementPriceYen int64  `json:"total_reimbursement_price_yen"`
}

// LookupOutcome is the classified result of a JAN dictionary lookup.
// Record is set only for DictStatusHit and Error only for DictStatusFetchError.
type LookupOutcome struct {
	Status DictStatus
	Record DictionaryRecord
	Error  string
}

func Hit(rec DictionaryRecord) LookupOutcome {
	return LookupOutcome{Status: DictStatusHit, Record: rec}
}

func NoMatch() LookupOutcome {
	return LookupOutcome{Status: DictStatusNoMatch}
}

func FetchError(message string) LookupOutcome {
	return LookupOutcome{Status: DictStatusFetchError, Error: message}
}

// GTINLookup is the result of the GTIN-14 to JAN-13 hop.
type GTINLookup struct {
	Status DictStatus
	JAN13  string
	Error  string
}

type Material struct {
	ID         string     `json:"id"`
	Raw        string     `json:"raw"`
	JAN13      *string    `json:"jan13"`
	GTIN14     *string    `json:"gtin14"`
	DictStatus DictStatus `json:"dict_status"`
	DictError  string     `json:"dict_error,omitempty"`
	DictionaryRecord
	ScannedAt time.Time `json:"scanned_at"`
}

// Notification is the payload handed to the notification sink.
type Notification struct {
	Title    string `json:"title"`
	Price    *int64 `json:"price,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
}
