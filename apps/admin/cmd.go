package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/fee"
	"github.com/trezcool/escola/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	usrSvc     *user.Service
	feeSvc     *fee.Service
	validate   *validator.Validate
	translator ut.Translator
	conf       *core.Config
	out        func(format string, args ...interface{})
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	if cli.out != nil {
		cli.out(format, args...)
		return
	}
	fmt.Printf(format, args...)
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -name NAME -username USERNAME -role ROLE - create a user, the password is prompted next")
	fmt.Println("  resetpassword -username USERNAME - reset user's password")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose command: up, up-by-one, up-to, down, down-to, redo, reset, status, version")
	fmt.Println("  genfees -month MONTH -year YEAR -amount AMOUNT [-discount DISCOUNT] -due YYYY-MM-DD - bill a month to every student")
	fmt.Println("  genyearly -student ID -amount AMOUNT [-discount DISCOUNT] [-dueday DAY] [-year YEAR] - bill a year to one student")
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "adduser":
		cmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
		name := cmd.String("name", "", "The user's full name.")
		uname := cmd.String("username", "", "The user's username. The password will be prompted next.")
		role := cmd.String("role", user.RoleSecretary, "One of: director, secretary, teacher.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *name == "" || *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addUser(*name, *uname, *role, pwd)

	case "resetpassword":
		cmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
		uname := cmd.String("username", "", "The user's username. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*uname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "genfees":
		cmd := flag.NewFlagSet("genfees", flag.ContinueOnError)
		month := cmd.String("month", "", "The month to bill, eg. March.")
		year := cmd.Int("year", 0, "The year to bill.")
		amount := cmd.String("amount", "", "The monthly amount, eg. 300.00")
		discount := cmd.String("discount", "", "The discount subtracted from the amount.")
		due := cmd.String("due", "", "The due date (YYYY-MM-DD).")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *month == "" || *amount == "" || *due == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.generateMonth(fee.BulkRequest{
			Month:    *month,
			Year:     *year,
			Amount:   *amount,
			Discount: *discount,
			DueDate:  *due,
		})

	case "genyearly":
		cmd := flag.NewFlagSet("genyearly", flag.ContinueOnError)
		student := cmd.Int("student", 0, "The student ID.")
		amount := cmd.String("amount", "", "The monthly amount, eg. 300.00")
		discount := cmd.String("discount", "", "The discount subtracted from the amount.")
		dueDay := cmd.Int("dueday", 0, "The day of the month fees are due. Defaults to the configured day.")
		year := cmd.Int("year", 0, "The year to bill. Defaults to the current year.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *student == 0 || *amount == "" {
			cmd.Usage()
			return errHelp
		}
		yr := fee.YearlyRequest{StudentID: *student, Amount: *amount, Discount: *discount}
		if *dueDay != 0 {
			yr.DueDay = strconv.Itoa(*dueDay)
		}
		if *year != 0 {
			yr.Year = strconv.Itoa(*year)
		}
		return cli.generateYear(yr)

	default:
		cli.printUsage()
		return errHelp
	}
}
