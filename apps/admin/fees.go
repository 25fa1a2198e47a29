package main

import (
	"context"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
)

func (cli *commandLine) printResult(res fee.GenerationResult) {
	for _, f := range res.Created {
		cli.printf("  %-30s %s/%d  %s  due %s\n",
			f.StudentName, f.Month, f.Year, core.FormatMoney(cli.conf.CurrencySymbol, f.Amount), f.DueDate.Format(core.DateLayout))
	}
	cli.printf("%d fees created, %d skipped\n", res.CreatedCount(), res.Skipped)
}

func (cli *commandLine) generateMonth(br fee.BulkRequest) error {
	if err := br.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	res, err := cli.feeSvc.GenerateMonth(context.Background(), br)
	if err != nil {
		return err
	}
	cli.printResult(res)
	return nil
}

func (cli *commandLine) generateYear(yr fee.YearlyRequest) error {
	if err := yr.Validate(cli.validate, cli.conf.Fees.DefaultDueDay, cli.feeSvc.CurrentYear()); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	res, err := cli.feeSvc.GenerateYear(context.Background(), yr)
	if err != nil {
		return err
	}
	cli.printResult(res)
	return nil
}
