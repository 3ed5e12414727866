package dictionary

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"
)

// Columns lists, per logical field, the header spellings that may carry it.
// Earlier names win when several are present and non-empty.
type Columns struct {
	JAN13                      []string `yaml:"jan13"`
	GTIN14                     []string `yaml:"gtin14"`
	ProductName                []string `yaml:"product_name"`
	ManufacturerName           []string `yaml:"manufacturer_name"`
	ProductNo                  []string `yaml:"product_no"`
	ProductSta                 []string `yaml:"product_sta"`
	TokuteiName                []string `yaml:"tokutei_name"`
	TotalReimbursementPriceYen []string `yaml:"total_reimbursement_price_yen"`
}

func DefaultColumns() Columns {
	return Columns{
		JAN13:                      []string{"jan13", "jan", "jan_code", "jancode", "JANコード", "JAN"},
		GTIN14:                     []string{"gtin14", "gtin", "gtin_code", "gs1", "GTINコード", "GS1コード"},
		ProductName:                []string{"product_name", "productName", "name", "商品名", "製品名"},
		ManufacturerName:           []string{"manufacturer_name", "manufacturer", "maker_name", "maker", "メーカー名", "製造販売業者"},
		ProductNo:                  []string{"product_no", "product_number", "productNo", "catalog_no", "品番", "製品番号"},
		ProductSta:                 []string{"product_sta", "product_standard", "spec", "規格", "規格・サイズ"},
		TokuteiName:                []string{"tokutei_name", "tokutei", "特定保険医療材料名", "償還名称"},
		TotalReimbursementPriceYen: []string{"total_reimbursement_price_yen", "reimbursement_price", "price_yen", "price", "償還価格", "償還価格合計"},
	}
}

// LoadColumns reads a YAML synonym table. Fields absent from the file keep
// their defaults; fields present replace them.
func LoadColumns(path string) (Columns, error) {
	cols := DefaultColumns()
	if strings.TrimSpace(path) == "" {
		return cols, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cols, fmt.Errorf("read columns file: %w", err)
	}
	var override Columns
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return cols, fmt.Errorf("parse columns file: %w", err)
	}
	return cols.merge(override), nil
}

func (c Columns) merge(o Columns) Columns {
	pick := func(def, over []string) []string {
		if len(over) > 0 {
			return over
		}
		return def
	}
	return Columns{
		JAN13:                      pick(c.JAN13, o.JAN13),
		GTIN14:                     pick(c.GTIN14, o.GTIN14),
		ProductName:                pick(c.ProductName, o.ProductName),
		ManufacturerName:           pick(c.ManufacturerName, o.ManufacturerName),
		ProductNo:                  pick(c.ProductNo, o.ProductNo),
		ProductSta:                 pick(c.ProductSta, o.ProductSta),
		TokuteiName:                pick(c.TokuteiName, o.TokuteiName),
		TotalReimbursementPriceYen: pick(c.TotalReimbursementPriceYen, o.TotalReimbursementPriceYen),
	}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = width.Fold.String(strings.TrimSpace(h))
	return strings.ToLower(h)
}
