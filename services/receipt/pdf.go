// Package receipt renders payment receipts as single page A4 PDFs.
package receipt

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
)

const (
	Title               = "PAYMENT RECEIPT"
	GuardianPlaceholder = "not informed"
	PayDatePlaceholder  = "not recorded"

	dateLayout = "02/01/2006"
	fontFamily = "Arial"
	labelWidth = 45.0
)

// PDFRenderer renders receipts with the PDF core fonts, so every text is folded to ASCII.
type PDFRenderer struct{}

var _ fee.ReceiptRenderer = (*PDFRenderer)(nil)

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Lines returns the label/value pairs printed on the receipt, placeholders included.
func Lines(r fee.Receipt) [][2]string {
	guardian := r.GuardianName
	if guardian == "" {
		guardian = GuardianPlaceholder
	}
	payDate := PayDatePlaceholder
	if r.PaymentDate != nil {
		payDate = r.PaymentDate.Format(dateLayout)
	}
	issued := r.IssueDate
	if issued.IsZero() {
		issued = time.Now()
	}
	return [][2]string{
		{"Payment ID:", strconv.Itoa(r.FeeID)},
		{"Issue date:", issued.Format(dateLayout)},
		{"Payment date:", payDate},
		{"Student:", r.StudentName},
		{"Guardian:", guardian},
		{"Reference:", fmt.Sprintf("%s/%d", r.Month, r.Year)},
		{"Amount:", core.FormatMoney(r.CurrencySymbol, r.Amount)},
	}
}

func (PDFRenderer) Render(w io.Writer, r fee.Receipt) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(Title, false)
	pdf.AddPage()

	// header
	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 10, core.ASCIIFold(r.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetDrawColor(40, 90, 145)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY()+2, 190, pdf.GetY()+2)
	pdf.Ln(12)

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 10, Title, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	for _, line := range Lines(r) {
		pdf.SetFont(fontFamily, "", 11)
		pdf.Cell(labelWidth, 8, line[0])
		pdf.SetFont(fontFamily, "B", 11)
		pdf.Cell(0, 8, core.ASCIIFold(line[1]))
		pdf.Ln(8)
	}

	// signature
	pdf.Ln(30)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	pdf.Line(60, pdf.GetY(), 150, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 6, "Signature", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing receipt pdf")
	}
	return nil
}

// Filename returns receipt_<month>_<student-slug>.pdf
func (PDFRenderer) Filename(r fee.Receipt) string {
	return Filename(r)
}

func Filename(r fee.Receipt) string {
	month := core.Slugify(r.Month, "_", "month")
	student := core.Slugify(r.StudentName, "_", "student")
	return "receipt_" + month + "_" + student + ".pdf"
}
