package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/school"
)

const dashboardPendingLimit = 10

type dashboardAPI struct {
	schoolSvc *school.Service
	feeSvc    *fee.Service
}

type dashboardData struct {
	Summary      fee.Summary
	Pending      []fee.Fee
	PendingTotal int
}

func (api dashboardAPI) dashboard(ctx echo.Context) error {
	c := ctx.Request().Context()
	sum, err := api.feeSvc.Summary(c)
	if err != nil {
		return err
	}
	pending, err := api.feeSvc.Query(c, &fee.QueryFilter{Status: fee.StatusPending}, []core.DBOrdering{
		{Field: "due_date", Ascending: true},
		{Field: "student_name", Ascending: true},
	})
	if err != nil {
		return err
	}

	data := dashboardData{Summary: sum, Pending: pending, PendingTotal: len(pending)}
	if len(pending) > dashboardPendingLimit {
		data.Pending = pending[:dashboardPendingLimit]
	}
	return render(ctx, http.StatusOK, "dashboard", "Dashboard", data)
}
