package fee

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/school"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("fee")
	ErrFeeNotPaid    = core.NewFieldError("status", "receipts are only available for paid fees")
	ErrNoPDFRenderer = errors.New("no receipt renderer configured")

	NowFunc = time.Now // mockable
)

// generation modes
const (
	ModeBulk   = "bulk"
	ModeYearly = "yearly"
)

type (
	Repository interface {
		// CreateFee inserts f as is.
		CreateFee(ctx context.Context, f Fee, exec ...core.DBExecutor) (Fee, error)
		// InsertGeneratedFee inserts f unless a generated fee already exists for (student, month, year).
		// ok is false when the insert was skipped.
		InsertGeneratedFee(ctx context.Context, f Fee, exec ...core.DBExecutor) (created Fee, ok bool, err error)
		// FeeExists reports whether any fee, generated or not, exists for (student, month, year).
		FeeExists(ctx context.Context, studentID int, month string, year int, exec ...core.DBExecutor) (bool, error)
		GetFee(ctx context.Context, id int, exec ...core.DBExecutor) (Fee, error)
		QueryFees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Fee, error)
		UpdateFee(ctx context.Context, f Fee, exec ...core.DBExecutor) (Fee, error)
		// SummarizeFees counts and sums fees by status. Summary.Students is left empty.
		SummarizeFees(ctx context.Context, exec ...core.DBExecutor) (Summary, error)
	}

	// ReceiptRenderer renders a Receipt into a printable document.
	ReceiptRenderer interface {
		Render(w io.Writer, r Receipt) error
		Filename(r Receipt) string
	}

	Service struct {
		repo     Repository
		schools  school.Repository
		txm      core.TxManager
		conf     *core.Config
		logger   core.Logger
		mailer   core.EmailService
		renderer ReceiptRenderer
	}
)

// NewService creates the fee service. mailer & renderer are optional:
// without them no receipt is emailed and ReceiptPDF fails.
func NewService(
	repo Repository,
	schools school.Repository,
	txm core.TxManager,
	conf *core.Config,
	logger core.Logger,
	mailer core.EmailService,
	renderer ReceiptRenderer,
) *Service {
	return &Service{
		repo:     repo,
		schools:  schools,
		txm:      txm,
		conf:     conf,
		logger:   logger,
		mailer:   mailer,
		renderer: renderer,
	}
}

func now() time.Time { return NowFunc().UTC() }

// Today returns the current date in the configured time zone.
func (svc *Service) Today() time.Time {
	t := NowFunc().In(svc.conf.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrentYear is the default year of yearly generations.
func (svc *Service) CurrentYear() int {
	return svc.Today().Year()
}

// Create creates one pending fee. Extra fees for an already billed month are allowed.
func (svc *Service) Create(ctx context.Context, nf NewFee) (Fee, error) {
	var f Fee
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		s, err := svc.schools.GetStudent(ctx, nf.StudentID, exec)
		if err != nil {
			return err
		}
		t := now()
		f, err = svc.repo.CreateFee(ctx, Fee{
			StudentID:   s.ID,
			StudentName: s.Name,
			Month:       nf.Month,
			Year:        nf.dueDate.Year(),
			Amount:      nf.amount,
			Status:      StatusPending,
			DueDate:     nf.dueDate,
			CreatedAt:   t,
			UpdatedAt:   t,
		}, exec)
		return err
	})
	return f, err
}

// generate inserts a generated pending fee unless (student, month, year) is already billed.
func (svc *Service) generate(ctx context.Context, f Fee, exec core.DBExecutor) (Fee, bool, error) {
	exists, err := svc.repo.FeeExists(ctx, f.StudentID, f.Month, f.Year, exec)
	if err != nil {
		return Fee{}, false, errors.Wrap(err, "checking existing fee")
	}
	if exists {
		return Fee{}, false, nil
	}

	t := now()
	f.Status = StatusPending
	f.Generated = true
	f.CreatedAt = t
	f.UpdatedAt = t
	created, ok, err := svc.repo.InsertGeneratedFee(ctx, f, exec)
	if err != nil {
		return Fee{}, false, errors.Wrap(err, "inserting generated fee")
	}
	return created, ok, nil
}

// GenerateMonth bills br.Month/br.Year to every student, skipping the students already billed.
func (svc *Service) GenerateMonth(ctx context.Context, br BulkRequest) (GenerationResult, error) {
	var res GenerationResult
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		res = GenerationResult{}
		students, err := svc.schools.QueryStudents(ctx, nil, []core.DBOrdering{{Field: "id", Ascending: true}}, exec)
		if err != nil {
			return errors.Wrap(err, "querying students")
		}
		for _, s := range students {
			f, ok, err := svc.generate(ctx, Fee{
				StudentID:   s.ID,
				StudentName: s.Name,
				Month:       br.Month,
				Year:        br.Year,
				Amount:      br.charge,
				DueDate:     br.dueDate,
			}, exec)
			if err != nil {
				return err
			}
			if ok {
				res.Created = append(res.Created, f)
			} else {
				res.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return GenerationResult{}, err
	}
	return res, nil
}

// GenerateYear bills the twelve months of yr.year to one student, skipping the months already billed.
func (svc *Service) GenerateYear(ctx context.Context, yr YearlyRequest) (GenerationResult, error) {
	var res GenerationResult
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		res = GenerationResult{}
		s, err := svc.schools.GetStudent(ctx, yr.StudentID, exec)
		if err != nil {
			return err
		}
		for i, label := range Months {
			f, ok, err := svc.generate(ctx, Fee{
				StudentID:   s.ID,
				StudentName: s.Name,
				Month:       label,
				Year:        yr.year,
				Amount:      yr.charge,
				DueDate:     dueDate(yr.year, time.Month(i+1), yr.dueDay),
			}, exec)
			if err != nil {
				return err
			}
			if ok {
				res.Created = append(res.Created, f)
			} else {
				res.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return GenerationResult{}, err
	}
	return res, nil
}

// MarkPaid records the payment of a fee today.
// Marking an already paid fee keeps its original payment date and changed is false.
func (svc *Service) MarkPaid(ctx context.Context, id int) (f Fee, changed bool, err error) {
	err = svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if f, err = svc.repo.GetFee(ctx, id, exec); err != nil {
			return err
		}
		if f.IsPaid() {
			return nil
		}
		f.markPaid(svc.Today())
		f.UpdatedAt = now()
		if f, err = svc.repo.UpdateFee(ctx, f, exec); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return Fee{}, false, err
	}
	if changed {
		svc.mailReceipt(ctx, f)
	}
	return f, changed, nil
}

// Update applies a manual edit. Switching to paid stamps today's date unless the fee was already paid;
// switching to pending clears the payment date.
func (svc *Service) Update(ctx context.Context, id int, uf UpdateFee) (Fee, error) {
	var f Fee
	err := svc.txm.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if f, err = svc.repo.GetFee(ctx, id, exec); err != nil {
			return err
		}
		f.Amount = uf.amount
		f.DueDate = uf.dueDate
		switch uf.Status {
		case StatusPaid:
			if !f.IsPaid() {
				f.markPaid(svc.Today())
			}
		default:
			f.markPending()
		}
		f.UpdatedAt = now()
		f, err = svc.repo.UpdateFee(ctx, f, exec)
		return err
	})
	return f, err
}

func (svc *Service) Get(ctx context.Context, id int) (Fee, error) {
	return svc.repo.GetFee(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Fee, error) {
	return svc.repo.QueryFees(ctx, filter, ordering)
}

func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	sum, err := svc.repo.SummarizeFees(ctx)
	if err != nil {
		return Summary{}, errors.Wrap(err, "summarizing fees")
	}
	if sum.Students, err = svc.schools.CountStudents(ctx); err != nil {
		return Summary{}, errors.Wrap(err, "counting students")
	}
	return sum, nil
}

// receipt gathers the receipt of a paid fee along with the student's guardian, if any.
func (svc *Service) receipt(ctx context.Context, f Fee) (Receipt, *school.Guardian, error) {
	if !f.IsPaid() {
		return Receipt{}, nil, ErrFeeNotPaid
	}
	s, err := svc.schools.GetStudent(ctx, f.StudentID)
	if err != nil {
		return Receipt{}, nil, errors.Wrap(err, "getting student")
	}

	var guardian *school.Guardian
	if s.GuardianID != nil {
		g, err := svc.schools.GetGuardian(ctx, *s.GuardianID)
		switch {
		case err == nil:
			guardian = &g
		case !core.IsNotFound(err):
			return Receipt{}, nil, errors.Wrap(err, "getting guardian")
		}
	}

	r := Receipt{
		SchoolName:     svc.conf.SchoolName,
		FeeID:          f.ID,
		IssueDate:      svc.Today(),
		PaymentDate:    f.PaymentDate,
		StudentName:    s.Name,
		Month:          f.Month,
		Year:           f.Year,
		Amount:         f.Amount,
		CurrencySymbol: svc.conf.CurrencySymbol,
	}
	if guardian != nil {
		r.GuardianName = guardian.Name
	}
	return r, guardian, nil
}

// Receipt returns the receipt of a paid fee. A pending fee is a ValidationError.
func (svc *Service) Receipt(ctx context.Context, id int) (Receipt, error) {
	f, err := svc.repo.GetFee(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	r, _, err := svc.receipt(ctx, f)
	return r, err
}

// ReceiptPDF renders the receipt of a paid fee.
func (svc *Service) ReceiptPDF(ctx context.Context, id int) (filename string, content []byte, err error) {
	if svc.renderer == nil {
		return "", nil, ErrNoPDFRenderer
	}
	r, err := svc.Receipt(ctx, id)
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	if err := svc.renderer.Render(&buf, r); err != nil {
		return "", nil, errors.Wrap(err, "rendering receipt")
	}
	return svc.renderer.Filename(r), buf.Bytes(), nil
}

type receiptMailData struct {
	GuardianName string
	StudentName  string
	Month        string
	Year         int
	Amount       string
	PaymentDate  string
	SchoolName   string
}

// mailReceipt emails the receipt of a freshly paid fee to the student's guardian.
// Failures are logged only.
func (svc *Service) mailReceipt(ctx context.Context, f Fee) {
	if svc.mailer == nil || svc.renderer == nil {
		return
	}
	r, guardian, err := svc.receipt(ctx, f)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("fee.mailReceipt(%d): %v", f.ID, err), err)
		return
	}
	if guardian == nil {
		return
	}
	addr, ok := guardian.Address()
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := svc.renderer.Render(&buf, r); err != nil {
		svc.logger.Error(fmt.Sprintf("fee.mailReceipt(%d): rendering: %v", f.ID, err), err)
		return
	}

	data := receiptMailData{
		GuardianName: guardian.Name,
		StudentName:  r.StudentName,
		Month:        r.Month,
		Year:         r.Year,
		Amount:       core.FormatMoney(r.CurrencySymbol, r.Amount),
		SchoolName:   r.SchoolName,
	}
	if r.PaymentDate != nil {
		data.PaymentDate = r.PaymentDate.Format(core.DateLayout)
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{addr},
		Subject:      fmt.Sprintf("Payment receipt - %s/%d", r.Month, r.Year),
		TemplateName: "receipt",
		TemplateData: data,
	}
	if err := msg.Attach(&buf, svc.renderer.Filename(r), "application/pdf"); err != nil {
		svc.logger.Error(fmt.Sprintf("fee.mailReceipt(%d): attaching: %v", f.ID, err), err)
		return
	}
	svc.mailer.SendMessages(msg)
}

// Total sums the amounts of fees.
func Total(fees []Fee) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fees {
		total = total.Add(f.Amount)
	}
	return total
}
