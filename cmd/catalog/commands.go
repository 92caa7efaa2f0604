package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vitor-labes/catalog-browser/internal/catalog"
	"github.com/vitor-labes/catalog-browser/internal/domain"
	"github.com/vitor-labes/catalog-browser/internal/export"
	"github.com/vitor-labes/catalog-browser/internal/repository"
	"github.com/vitor-labes/catalog-browser/internal/screen"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lista todos os produtos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.client.FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			return writeProducts(a.out, page.Products)
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	var csvDir string

	cmd := &cobra.Command{
		Use:   "search [texto]",
		Short: "Busca produtos pelo texto",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			}

			page, err := a.client.Search(cmd.Context(), text)
			if err != nil {
				return err
			}
			if len(page.Products) == 0 {
				fmt.Fprintf(a.out, "nenhum resultado para %q\n", text)
				return nil
			}
			if err := writeProducts(a.out, page.Products); err != nil {
				return err
			}

			if csvDir != "" {
				path, err := export.ToCSV(csvDir, page.Products)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "CSV gerado em %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvDir, "csv", "", "diretório onde exportar o resultado em CSV")
	return cmd
}

type productFlags struct {
	file        string
	title       string
	description string
	category    string
	brand       string
	price       float64
	stock       int
}

func (f *productFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "file", "", "arquivo JSON com o produto")
	cmd.Flags().StringVar(&f.title, "title", "", "título")
	cmd.Flags().StringVar(&f.description, "description", "", "descrição")
	cmd.Flags().StringVar(&f.category, "category", "", "categoria")
	cmd.Flags().StringVar(&f.brand, "brand", "", "marca")
	cmd.Flags().Float64Var(&f.price, "price", 0, "preço")
	cmd.Flags().IntVar(&f.stock, "stock", 0, "estoque")
}

// product builds the payload from --file and then applies any flag the user
// set explicitly.
func (f *productFlags) product(cmd *cobra.Command) (domain.Product, error) {
	var p domain.Product
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return domain.Product{}, fmt.Errorf("erro ao ler %s: %w", f.file, err)
		}
		if p, err = decodeDraft(data); err != nil {
			return domain.Product{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		p.Title = f.title
	}
	if flags.Changed("description") {
		p.Description = f.description
	}
	if flags.Changed("category") {
		p.Category = f.category
	}
	if flags.Changed("brand") {
		p.Brand = f.brand
	}
	if flags.Changed("price") {
		p.Price = f.price
	}
	if flags.Changed("stock") {
		p.Stock = f.stock
	}
	return p, nil
}

// decodeDraft decodes a hand-written product file. The service assigns ids,
// so a file without one decodes as id 0.
func decodeDraft(data []byte) (domain.Product, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Product{}, &catalog.DecodeError{Op: "file", Err: err}
	}
	if raw != nil {
		if _, ok := raw["id"]; !ok {
			raw["id"] = json.RawMessage("0")
			body, err := json.Marshal(raw)
			if err != nil {
				return domain.Product{}, &catalog.DecodeError{Op: "file", Err: err}
			}
			data = body
		}
	}

	return catalog.Decode[domain.Product](data)
}

func (a *app) addCmd() *cobra.Command {
	var flags productFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Cadastra um produto",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.product(cmd)
			if err != nil {
				return err
			}
			data, err := a.client.CreateAsync(cmd.Context(), p).Wait(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, string(data))
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var flags productFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Atualiza um produto",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := flags.product(cmd)
			if err != nil {
				return err
			}
			data, err := a.client.UpdateAsync(cmd.Context(), id, p).Wait(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, string(data))
			return err
		},
	}

	flags.register(cmd)
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove um produto",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.client.DeleteAsync(cmd.Context(), id).Wait(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "produto %d removido\n", id)
			return nil
		},
	}
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Busca interativa: cada linha digitada é uma nova busca",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return browse(cmd.Context(), a.in, a.out, a.client, screen.Options{
				Timeout:   a.cfg.Timeout,
				RowHeight: a.cfg.RowHeight,
			})
		},
	}
}

// browse feeds every input line to a search screen as a text change.
func browse(ctx context.Context, in io.Reader, out io.Writer, searcher screen.Searcher, opts screen.Options) error {
	view := newTerminalView(out)
	s := screen.New(searcher, view, opts)
	defer s.Close()

	fmt.Fprintln(out, "digite para buscar (Ctrl+D para sair)")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		s.TextDidChange(scanner.Text())
	}
	s.Wait()

	return scanner.Err()
}

type changeLister interface {
	Recent(ctx context.Context, limit int) ([]domain.ProductChange, error)
	Close() error
}

func openChangeRepository(databaseURL string) (changeLister, error) {
	return repository.NewChangeRepository(databaseURL)
}

func (a *app) journalCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Lista as últimas alterações registradas pelo consumidor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limite inválido: %d", limit)
			}

			open := a.openJournal
			if open == nil {
				open = openChangeRepository
			}
			repo, err := open(a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer repo.Close()

			changes, err := repo.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(changes) == 0 {
				_, err = fmt.Fprintln(a.out, "nenhuma alteração registrada")
				return err
			}
			return writeChanges(a.out, changes)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "quantidade de alterações")
	return cmd
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido: %q", raw)
	}
	return id, nil
}
