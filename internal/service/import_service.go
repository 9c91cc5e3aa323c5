package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/filtrotek/storefront/internal/models"
	"github.com/filtrotek/storefront/internal/utils"
)

const (
	ImportKindProducts   = "products"
	ImportKindCategories = "categories"

	maxImportRows = 5000
)

// Spreadsheet headers, in template order.
var (
	productColumns = []string{
		"Código", "Nombre (ES)", "Nombre (EN)", "Descripción (ES)", "Descripción (EN)",
		"Categoría (ES)", "Categoría (EN)", "Precio", "Precio USD", "Stock", "Estado",
		"Etiquetas", "Dimensiones", "Material", "Garantía",
	}
	categoryColumns = []string{
		"Slug", "Nombre (ES)", "Nombre (EN)", "Descripción (ES)", "Descripción (EN)",
		"Medida", "Precio", "Moneda", "Código ERP",
	}
)

// ProductUpserter writes imported products.
type ProductUpserter interface {
	UpsertByItemCode(ctx context.Context, p *models.Product) (bool, error)
}

// CategoryUpserter writes imported categories and variants.
type CategoryUpserter interface {
	UpsertBySlug(ctx context.Context, c *models.FilterCategory) (bool, error)
	UpsertVariant(ctx context.Context, v *models.FilterCategoryVariant) (bool, error)
}

// ImportRowError points at a spreadsheet row that was skipped.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Created         int              `json:"created"`
	Updated         int              `json:"updated"`
	VariantsCreated int              `json:"variantsCreated,omitempty"`
	VariantsUpdated int              `json:"variantsUpdated,omitempty"`
	Errors          []ImportRowError `json:"errors"`
}

func (r *ImportResult) fail(row int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ImportRowError{Row: row, Message: fmt.Sprintf(format, args...)})
}

// ImportService loads products and categories from xlsx workbooks.
type ImportService struct {
	products   ProductUpserter
	categories CategoryUpserter
	catalog    catalogInvalidator
}

// NewImportService creates an ImportService.
func NewImportService(products ProductUpserter, categories CategoryUpserter, catalog catalogInvalidator) *ImportService {
	return &ImportService{products: products, categories: categories, catalog: catalog}
}

// ImportProducts upserts one product per row, keyed by Código.
func (s *ImportService) ImportProducts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}
	cols, err := mapColumns(rows[0], productColumns, "Código", "Nombre (ES)", "Precio")
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []ImportRowError{}}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blankRow(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, msg := parseProductRow(cols.reader(row))
		if msg != "" {
			result.fail(rowNum, "%s", msg)
			continue
		}
		created, err := s.products.UpsertByItemCode(ctx, p)
		if err != nil {
			log.Error().Err(err).Int("row", rowNum).Str("item_code", p.ItemCode).Msg("Product import row failed")
			result.fail(rowNum, "no se pudo guardar %s", p.ItemCode)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if result.Created+result.Updated > 0 {
		s.catalog.Invalidate()
	}
	log.Info().Int("created", result.Created).Int("updated", result.Updated).Int("errors", len(result.Errors)).Msg("Product import finished")
	return result, nil
}

// ImportCategories upserts categories by slug; each row with a Medida is
// also a variant of that category.
func (s *ImportService) ImportCategories(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}
	cols, err := mapColumns(rows[0], categoryColumns, "Nombre (ES)")
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []ImportRowError{}}
	seen := map[string]bool{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blankRow(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		get := cols.reader(row)

		c := &models.FilterCategory{
			Slug:          utils.Slugify(get("Slug")),
			NameES:        get("Nombre (ES)"),
			NameEN:        get("Nombre (EN)"),
			DescriptionES: get("Descripción (ES)"),
			DescriptionEN: get("Descripción (EN)"),
		}
		if c.NameES == "" {
			result.fail(rowNum, "Nombre (ES) es requerido")
			continue
		}
		if c.Slug == "" {
			c.Slug = utils.Slugify(c.NameES)
		}

		var variant *models.FilterCategoryVariant
		if size := get("Medida"); size != "" {
			price, err := parseMoney(get("Precio"))
			if err != nil || price.IsNegative() {
				result.fail(rowNum, "Precio inválido: %q", get("Precio"))
				continue
			}
			currency := strings.ToUpper(get("Moneda"))
			if currency == "" {
				currency = "MXN"
			}
			if currency != "MXN" && currency != "USD" {
				result.fail(rowNum, "Moneda inválida: %q", currency)
				continue
			}
			variant = &models.FilterCategoryVariant{Size: size, Price: price, Currency: currency, ERPCode: get("Código ERP")}
		}

		created, err := s.categories.UpsertBySlug(ctx, c)
		if err != nil {
			log.Error().Err(err).Int("row", rowNum).Str("slug", c.Slug).Msg("Category import row failed")
			result.fail(rowNum, "no se pudo guardar la categoría %s", c.Slug)
			continue
		}
		if !seen[c.Slug] {
			seen[c.Slug] = true
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		if variant == nil {
			continue
		}
		variant.CategoryID = c.ID
		vCreated, err := s.categories.UpsertVariant(ctx, variant)
		if err != nil {
			log.Error().Err(err).Int("row", rowNum).Str("slug", c.Slug).Str("size", variant.Size).Msg("Variant import row failed")
			result.fail(rowNum, "no se pudo guardar la medida %s", variant.Size)
			continue
		}
		if vCreated {
			result.VariantsCreated++
		} else {
			result.VariantsUpdated++
		}
	}

	log.Info().Int("created", result.Created).Int("updated", result.Updated).
		Int("variants_created", result.VariantsCreated).Int("variants_updated", result.VariantsUpdated).
		Int("errors", len(result.Errors)).Msg("Category import finished")
	return result, nil
}

// Template returns an empty workbook with the headers for kind.
func (s *ImportService) Template(kind string) ([]byte, error) {
	var sheet string
	var headers []string
	var example []interface{}
	switch kind {
	case ImportKindProducts:
		sheet, headers = "Productos", productColumns
		example = []interface{}{"CP-10-5", "Cartucho plisado 10\" 5 micras", "Pleated cartridge 10\" 5 micron",
			"", "", "Cartuchos", "Cartridges", 189.0, "", 25, "activo", "sedimento", "2.5 x 10 in", "Poliéster", "6 meses"}
	case ImportKindCategories:
		sheet, headers = "Categorías", categoryColumns
		example = []interface{}{"cartuchos-plisados", "Cartuchos plisados", "Pleated cartridges", "", "", "10\"", 189.0, "MXN", "CP-10"}
	default:
		return nil, &utils.ValidationError{Fields: map[string]string{"kind": "debe ser products o categories"}}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A2", &example); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", last, 22); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readSheet returns the rows of the first worksheet, header included.
func readSheet(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &utils.ValidationError{Fields: map[string]string{"file": "no es un archivo xlsx válido"}}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &utils.ValidationError{Fields: map[string]string{"file": "el archivo no tiene hojas"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, &utils.ValidationError{Fields: map[string]string{"file": "el archivo no tiene filas de datos"}}
	}
	if len(rows)-1 > maxImportRows {
		return nil, &utils.ValidationError{Fields: map[string]string{"file": fmt.Sprintf("máximo %d filas por archivo", maxImportRows)}}
	}
	return rows, nil
}

type columnMap map[string]int

// mapColumns locates known headers in the first row, ignoring case and
// surrounding spaces.
func mapColumns(header []string, known []string, required ...string) (columnMap, error) {
	cols := columnMap{}
	for i, h := range header {
		for _, k := range known {
			if strings.EqualFold(strings.TrimSpace(h), k) {
				cols[k] = i
			}
		}
	}
	missing := map[string]string{}
	for _, k := range required {
		if _, ok := cols[k]; !ok {
			missing[k] = "columna requerida no encontrada"
		}
	}
	if len(missing) > 0 {
		return nil, &utils.ValidationError{Fields: missing}
	}
	return cols, nil
}

func (m columnMap) reader(row []string) func(string) string {
	return func(name string) string {
		i, ok := m[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseProductRow returns the product or a message describing the problem.
func parseProductRow(get func(string) string) (*models.Product, string) {
	p := &models.Product{
		ItemCode:      get("Código"),
		NameES:        get("Nombre (ES)"),
		NameEN:        get("Nombre (EN)"),
		DescriptionES: get("Descripción (ES)"),
		DescriptionEN: get("Descripción (EN)"),
		CategoryES:    get("Categoría (ES)"),
		CategoryEN:    get("Categoría (EN)"),
		Tags:          get("Etiquetas"),
		Dimensions:    get("Dimensiones"),
		Material:      get("Material"),
		Warranty:      get("Garantía"),
	}
	if p.ItemCode == "" {
		return nil, "Código es requerido"
	}
	if p.NameES == "" {
		return nil, "Nombre (ES) es requerido"
	}

	price, err := parseMoney(get("Precio"))
	if err != nil || !price.IsPositive() {
		return nil, fmt.Sprintf("Precio inválido: %q", get("Precio"))
	}
	p.Price = price

	if raw := get("Precio USD"); raw != "" {
		usd, err := parseMoney(raw)
		if err != nil || usd.IsNegative() {
			return nil, fmt.Sprintf("Precio USD inválido: %q", raw)
		}
		p.PriceUSD = decimal.NewNullDecimal(usd)
	}

	if raw := get("Stock"); raw != "" {
		stock, err := strconv.Atoi(strings.TrimSuffix(raw, ".0"))
		if err != nil || stock < 0 {
			return nil, fmt.Sprintf("Stock inválido: %q", raw)
		}
		p.Stock = stock
	}

	status, ok := parseProductStatus(get("Estado"))
	if !ok {
		return nil, fmt.Sprintf("Estado inválido: %q", get("Estado"))
	}
	p.Status = status
	return p, ""
}

// parseMoney accepts "1,234.50", "$189" and plain numbers.
func parseMoney(raw string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

func parseProductStatus(raw string) (models.ProductStatus, bool) {
	switch strings.ToLower(raw) {
	case "", "activo", "active":
		return models.ProductActive, true
	case "inactivo", "inactive":
		return models.ProductInactive, true
	case "borrador", "draft":
		return models.ProductDraft, true
	}
	return "", false
}
