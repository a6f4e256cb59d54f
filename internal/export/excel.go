package export

import (
	"context"
	"fmt"
	"time"

	"agendapro/internal/domain"
	"agendapro/internal/logging"
	"agendapro/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetAppointments = "Agendamentos"
	SheetFinance      = "Financeiro"

	dateLayout = "2006-01-02"
)

// Source is the read side the exporter needs.
type Source interface {
	ListAppointmentsInRange(ctx context.Context, tenantID, from, to string) ([]*models.Appointment, error)
	ListTransactions(ctx context.Context, tenantID string, from, to time.Time) ([]*models.Transaction, error)
}

var _ Source = (domain.Repository)(nil)

type Exporter struct {
	source   Source
	location *time.Location
	logger   *zerolog.Logger
}

func NewExporter(source Source, location *time.Location, logger *zerolog.Logger) *Exporter {
	if location == nil {
		location = time.UTC
	}
	l := logging.Component(logger, "export")
	return &Exporter{source: source, location: location, logger: l}
}

// FileName is the download name of a tenant report.
func FileName(tenantID string, from, to time.Time) string {
	return fmt.Sprintf("relatorio_%s_%s_a_%s.xlsx", tenantID, from.Format(dateLayout), to.Format(dateLayout))
}

// TenantReport builds an xlsx with the tenant's appointments and transactions
// between the from and to dates, both inclusive.
func (e *Exporter) TenantReport(ctx context.Context, tenantID string, from, to time.Time) ([]byte, error) {
	from, to = e.day(from), e.day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("export: end date %s is before start date %s", to.Format(dateLayout), from.Format(dateLayout))
	}

	appointments, err := e.source.ListAppointmentsInRange(ctx, tenantID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("error getting appointments: %w", err)
	}
	transactions, err := e.source.ListTransactions(ctx, tenantID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("error getting transactions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	index, err := f.NewSheet(SheetAppointments)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := e.writeAppointments(f, styles, appointments); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetFinance); err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	if err := e.writeTransactions(f, styles, transactions); err != nil {
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}

	e.logger.Info().
		Str("tenant_id", tenantID).
		Int("appointments", len(appointments)).
		Int("transactions", len(transactions)).
		Msg("tenant report created")
	return buf.Bytes(), nil
}

func (e *Exporter) day(t time.Time) time.Time {
	t = t.In(e.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.location)
}

type styles struct {
	header int
	money  int
	total  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return s, fmt.Errorf("error creating style: %w", err)
	}
	s.money, err = f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return s, fmt.Errorf("error creating style: %w", err)
	}
	s.total, err = f.NewStyle(&excelize.Style{NumFmt: 2, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return s, fmt.Errorf("error creating style: %w", err)
	}
	return s, nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeHeader(f *excelize.File, sheet string, style int, headers []interface{}) error {
	if err := writeRow(f, sheet, 1, headers...); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func (e *Exporter) writeAppointments(f *excelize.File, st styles, appointments []*models.Appointment) error {
	headers := []interface{}{"Data", "Início", "Fim", "Cliente", "Telefone", "Serviço", "Valor", "Pagamento", "Status", "Observações"}
	if err := writeHeader(f, SheetAppointments, st.header, headers); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for i, a := range appointments {
		row := i + 2
		err := writeRow(f, SheetAppointments, row,
			a.Date, a.StartTime, a.EndTime, a.ClientName, a.ClientPhone,
			a.Service.Name, a.Service.Price.InexactFloat64(), a.PaymentMethod, a.Status, a.Notes)
		if err != nil {
			return fmt.Errorf("error writing appointment row: %w", err)
		}
		cell := fmt.Sprintf("G%d", row)
		_ = f.SetCellStyle(SheetAppointments, cell, cell, st.money)
	}

	_ = f.SetColWidth(SheetAppointments, "A", "C", 12)
	_ = f.SetColWidth(SheetAppointments, "D", "F", 22)
	_ = f.SetColWidth(SheetAppointments, "J", "J", 30)
	return nil
}

func (e *Exporter) writeTransactions(f *excelize.File, st styles, transactions []*models.Transaction) error {
	headers := []interface{}{"Data", "Tipo", "Descrição", "Categoria", "Valor", "Automática"}
	if err := writeHeader(f, SheetFinance, st.header, headers); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	income, expense := decimal.Zero, decimal.Zero
	row := 2
	for _, tx := range transactions {
		if tx.Type == models.TransactionIncome {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}
		err := writeRow(f, SheetFinance, row,
			tx.Date.In(e.location).Format("02/01/2006"), typeLabel(tx.Type), tx.Description, tx.Category,
			tx.Signed().InexactFloat64(), yesNo(tx.IsAutomatic))
		if err != nil {
			return fmt.Errorf("error writing transaction row: %w", err)
		}
		cell := fmt.Sprintf("E%d", row)
		_ = f.SetCellStyle(SheetFinance, cell, cell, st.money)
		row++
	}

	row++
	totals := []struct {
		label string
		value decimal.Decimal
	}{
		{"Total receitas", income},
		{"Total despesas", expense.Neg()},
		{"Saldo", income.Sub(expense)},
	}
	for _, t := range totals {
		if err := writeRow(f, SheetFinance, row, "", "", t.label, "", t.value.InexactFloat64()); err != nil {
			return fmt.Errorf("error writing totals: %w", err)
		}
		_ = f.SetCellStyle(SheetFinance, fmt.Sprintf("C%d", row), fmt.Sprintf("E%d", row), st.total)
		row++
	}

	_ = f.SetColWidth(SheetFinance, "A", "B", 12)
	_ = f.SetColWidth(SheetFinance, "C", "D", 30)
	_ = f.SetColWidth(SheetFinance, "E", "F", 14)
	return nil
}

func typeLabel(t string) string {
	if t == models.TransactionIncome {
		return "Receita"
	}
	return "Despesa"
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
