package echoapi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
)

type financeAPI struct {
	svc       *fee.Service
	schoolSvc *school.Service
	validate  *validator.Validate
	metrics   *Metrics
	conf      *core.Config
}

func registerFinanceAPI(g *echo.Group, deps Deps, conf *core.Config) {
	api := financeAPI{
		svc:       deps.FeeSvc,
		schoolSvc: deps.SchoolSvc,
		validate:  deps.Validate,
		metrics:   deps.Metrics,
		conf:      conf,
	}

	fg := g.Group("/finance")
	fg.GET("", api.list)
	fg.POST("", api.create)
	fg.POST("/bulk", api.bulk)
	fg.POST("/yearly", api.yearly)
	fg.GET("/:id/edit", api.edit)
	fg.POST("/:id", api.update)
	fg.POST("/:id/pay", api.pay)
	fg.GET("/:id/receipt", api.receipt)
}

type financeList struct {
	Filter        fee.QueryFilter
	Fees          []fee.Fee
	Total         decimal.Decimal
	Students      []school.Student
	Statuses      []string
	CurrentYear   int
	DefaultDueDay int
}

func (api financeAPI) list(ctx echo.Context) error {
	c := ctx.Request().Context()
	filter := fee.QueryFilter{
		StudentID: queryInt(ctx, "student_id"),
		Status:    ctx.QueryParam("status"),
		Month:     ctx.QueryParam("month"),
		Year:      queryInt(ctx, "year"),
	}
	filter.Clean()

	fees, err := api.svc.Query(c, &filter, bindOrdering(ctx,
		core.DBOrdering{Field: "year", Ascending: false},
		core.DBOrdering{Field: "month", Ascending: true},
		core.DBOrdering{Field: "student_name", Ascending: true},
	))
	if err != nil {
		return err
	}
	students, err := api.schoolSvc.QueryStudents(c, nil, []core.DBOrdering{byName})
	if err != nil {
		return err
	}

	return render(ctx, http.StatusOK, "finance", "Finance", financeList{
		Filter:        filter,
		Fees:          fees,
		Total:         fee.Total(fees),
		Students:      students,
		Statuses:      fee.AllStatuses,
		CurrentYear:   api.svc.CurrentYear(),
		DefaultDueDay: api.conf.Fees.DefaultDueDay,
	})
}

func (api financeAPI) create(ctx echo.Context) error {
	setFormURL(ctx, "/finance")
	var data fee.NewFee
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Fee of %s/%d created for %s.", f.Month, f.Year, f.StudentName))
	return seeOther(ctx, "/finance")
}

func generationMessage(res fee.GenerationResult) string {
	return fmt.Sprintf("%d fees created, %d skipped.", res.CreatedCount(), res.Skipped)
}

func (api financeAPI) bulk(ctx echo.Context) error {
	setFormURL(ctx, "/finance")
	var data fee.BulkRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	res, err := api.svc.GenerateMonth(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	api.metrics.FeesGenerated(fee.ModeBulk, res.CreatedCount())
	setFlash(ctx, flashSuccess, generationMessage(res))

	q := url.Values{"month": {data.Month}, "year": {fmt.Sprint(data.Year)}}
	return seeOther(ctx, "/finance?"+q.Encode())
}

func (api financeAPI) yearly(ctx echo.Context) error {
	setFormURL(ctx, "/finance")
	var data fee.YearlyRequest
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate, api.conf.Fees.DefaultDueDay, api.svc.CurrentYear()); err != nil {
		return err
	}
	res, err := api.svc.GenerateYear(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	api.metrics.FeesGenerated(fee.ModeYearly, res.CreatedCount())
	setFlash(ctx, flashSuccess, generationMessage(res))

	q := url.Values{"student_id": {fmt.Sprint(data.StudentID)}}
	return seeOther(ctx, "/finance?"+q.Encode())
}

func (api financeAPI) edit(ctx echo.Context) error {
	id, err := paramID(ctx, fee.ErrNotFound)
	if err != nil {
		return err
	}
	f, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "fee_edit", "Edit fee", f)
}

func (api financeAPI) update(ctx echo.Context) error {
	id, err := paramID(ctx, fee.ErrNotFound)
	if err != nil {
		return err
	}
	setFormURL(ctx, fmt.Sprintf("/finance/%d/edit", id))

	var data fee.UpdateFee
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	f, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Fee of %s/%d updated.", f.Month, f.Year))
	return seeOther(ctx, "/finance")
}

// pay goes back to the page it was posted from.
func (api financeAPI) pay(ctx echo.Context) error {
	id, err := paramID(ctx, fee.ErrNotFound)
	if err != nil {
		return err
	}
	f, changed, err := api.svc.MarkPaid(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if changed {
		api.metrics.FeePaid()
		setFlash(ctx, flashSuccess, fmt.Sprintf("Fee of %s/%d marked as paid.", f.Month, f.Year))
	} else {
		setFlash(ctx, flashSuccess, fmt.Sprintf("Fee of %s/%d was already paid.", f.Month, f.Year))
	}
	return seeOther(ctx, formURL(ctx))
}

func (api financeAPI) receipt(ctx echo.Context) error {
	setFormURL(ctx, "/finance")
	id, err := paramID(ctx, fee.ErrNotFound)
	if err != nil {
		return err
	}
	filename, content, err := api.svc.ReceiptPDF(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, "application/pdf", content)
}
