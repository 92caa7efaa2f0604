package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vitor-labes/catalog-browser/internal/domain"
)

var header = []string{
	"ID", "Title", "Brand", "Category", "Price", "Discount %", "Rating", "Stock",
}

// WriteCSV writes products in the order given, which is the order shown on
// screen.
func WriteCSV(w io.Writer, products []domain.Product) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("erro ao escrever cabeçalho: %w", err)
	}

	for _, p := range products {
		if err := writer.Write([]string{
			strconv.Itoa(p.ID),
			p.Title,
			p.Brand,
			p.Category,
			fmt.Sprintf("%.2f", p.Price),
			fmt.Sprintf("%.2f", p.DiscountPercentage),
			fmt.Sprintf("%.2f", p.Rating),
			strconv.Itoa(p.Stock),
		}); err != nil {
			return fmt.Errorf("erro ao escrever linha do produto %d: %w", p.ID, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("erro ao finalizar escrita: %w", err)
	}
	return nil
}

// ToCSV writes products to a timestamped file in dir and returns its path.
func ToCSV(dir string, products []domain.Product) (string, error) {
	if len(products) == 0 {
		return "", fmt.Errorf("nenhum produto para exportar")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("erro ao criar diretório %s: %w", dir, err)
	}

	filename := fmt.Sprintf("products_%s.csv",
		time.Now().Format("20060102_150405"))

	path := filepath.Join(dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("erro ao criar arquivo: %w", err)
	}
	defer file.Close()

	// BOM so spreadsheet apps detect UTF-8
	if _, err := file.WriteString("\uFEFF"); err != nil {
		return "", fmt.Errorf("erro ao escrever arquivo: %w", err)
	}

	if err := WriteCSV(file, products); err != nil {
		return "", err
	}

	slog.Info("CSV exportado com sucesso",
		"filepath", path,
		"total_products", len(products),
	)

	return path, nil
}
