package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/school"
)

var byName = core.DBOrdering{Field: "name", Ascending: true}

func searchFilter(ctx echo.Context) *school.QueryFilter {
	filter := &school.QueryFilter{Search: ctx.QueryParam(searchParam)}
	filter.Clean()
	return filter
}

// Guardians

type guardianAPI struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerGuardianAPI(g *echo.Group, deps Deps) {
	api := guardianAPI{svc: deps.SchoolSvc, validate: deps.Validate}

	gg := g.Group("/guardians")
	gg.GET("", api.list)
	gg.POST("", api.create)
	gg.GET("/:id/edit", api.edit)
	gg.POST("/:id", api.update)
	gg.POST("/:id/delete", api.destroy)
}

type guardianList struct {
	Search    string
	Guardians []school.Guardian
}

func (api guardianAPI) list(ctx echo.Context) error {
	filter := searchFilter(ctx)
	guardians, err := api.svc.QueryGuardians(ctx.Request().Context(), filter, bindOrdering(ctx, byName))
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "guardians", "Guardians", guardianList{Search: filter.Search, Guardians: guardians})
}

func (api guardianAPI) create(ctx echo.Context) error {
	setFormURL(ctx, "/guardians")
	var data school.NewGuardian
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	g, err := api.svc.CreateGuardian(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Guardian %q created.", g.Name))
	return seeOther(ctx, "/guardians")
}

func (api guardianAPI) edit(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrGuardianNotFound)
	if err != nil {
		return err
	}
	g, err := api.svc.GetGuardian(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "guardian_edit", "Edit guardian", g)
}

func (api guardianAPI) update(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrGuardianNotFound)
	if err != nil {
		return err
	}
	setFormURL(ctx, fmt.Sprintf("/guardians/%d/edit", id))

	var data school.UpdateGuardian
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	g, err := api.svc.UpdateGuardian(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Guardian %q updated.", g.Name))
	return seeOther(ctx, "/guardians")
}

func (api guardianAPI) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrGuardianNotFound)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteGuardian(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, "Guardian deleted.")
	return seeOther(ctx, "/guardians")
}

// Students

type studentAPI struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, deps Deps) {
	api := studentAPI{svc: deps.SchoolSvc, validate: deps.Validate}

	sg := g.Group("/students")
	sg.GET("", api.list)
	sg.POST("", api.create)
	sg.GET("/:id/edit", api.edit)
	sg.POST("/:id", api.update)
	sg.POST("/:id/delete", api.destroy)
}

type studentList struct {
	Search    string
	Students  []school.Student
	Guardians []school.Guardian
}

type studentForm struct {
	Student   school.Student
	Guardians []school.Guardian
}

func (api studentAPI) list(ctx echo.Context) error {
	c := ctx.Request().Context()
	filter := searchFilter(ctx)
	filter.GuardianID = queryInt(ctx, "guardian_id")

	students, err := api.svc.QueryStudents(c, filter, bindOrdering(ctx, byName))
	if err != nil {
		return err
	}
	guardians, err := api.svc.QueryGuardians(c, nil, []core.DBOrdering{byName})
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "students", "Students", studentList{
		Search:    filter.Search,
		Students:  students,
		Guardians: guardians,
	})
}

func (api studentAPI) create(ctx echo.Context) error {
	setFormURL(ctx, "/students")
	var data school.NewStudent
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Student %q created.", s.Name))
	return seeOther(ctx, "/students")
}

func (api studentAPI) edit(ctx echo.Context) error {
	c := ctx.Request().Context()
	id, err := paramID(ctx, school.ErrStudentNotFound)
	if err != nil {
		return err
	}
	s, err := api.svc.GetStudent(c, id)
	if err != nil {
		return err
	}
	guardians, err := api.svc.QueryGuardians(c, nil, []core.DBOrdering{byName})
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "student_edit", "Edit student", studentForm{Student: s, Guardians: guardians})
}

func (api studentAPI) update(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrStudentNotFound)
	if err != nil {
		return err
	}
	setFormURL(ctx, fmt.Sprintf("/students/%d/edit", id))

	var data school.UpdateStudent
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	s, err := api.svc.UpdateStudent(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Student %q updated.", s.Name))
	return seeOther(ctx, "/students")
}

func (api studentAPI) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrStudentNotFound)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, "Student deleted.")
	return seeOther(ctx, "/students")
}

// Teachers

type teacherAPI struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, deps Deps) {
	api := teacherAPI{svc: deps.SchoolSvc, validate: deps.Validate}

	tg := g.Group("/teachers")
	tg.GET("", api.list)
	tg.POST("", api.create)
	tg.GET("/:id/edit", api.edit)
	tg.POST("/:id", api.update)
	tg.POST("/:id/delete", api.destroy)
}

type teacherList struct {
	Search   string
	Teachers []school.Teacher
}

func (api teacherAPI) list(ctx echo.Context) error {
	filter := searchFilter(ctx)
	teachers, err := api.svc.QueryTeachers(ctx.Request().Context(), filter, bindOrdering(ctx, byName))
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "teachers", "Teachers", teacherList{Search: filter.Search, Teachers: teachers})
}

func (api teacherAPI) create(ctx echo.Context) error {
	setFormURL(ctx, "/teachers")
	var data school.NewTeacher
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	t, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Teacher %q created.", t.Name))
	return seeOther(ctx, "/teachers")
}

func (api teacherAPI) edit(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrTeacherNotFound)
	if err != nil {
		return err
	}
	t, err := api.svc.GetTeacher(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "teacher_edit", "Edit teacher", t)
}

func (api teacherAPI) update(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrTeacherNotFound)
	if err != nil {
		return err
	}
	setFormURL(ctx, fmt.Sprintf("/teachers/%d/edit", id))

	var data school.UpdateTeacher
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	t, err := api.svc.UpdateTeacher(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Teacher %q updated.", t.Name))
	return seeOther(ctx, "/teachers")
}

func (api teacherAPI) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrTeacherNotFound)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, "Teacher deleted.")
	return seeOther(ctx, "/teachers")
}

// Classes

type classAPI struct {
	svc      *school.Service
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, deps Deps) {
	api := classAPI{svc: deps.SchoolSvc, validate: deps.Validate}

	cg := g.Group("/classes")
	cg.GET("", api.list)
	cg.POST("", api.create)
	cg.GET("/:id/edit", api.edit)
	cg.POST("/:id", api.update)
	cg.POST("/:id/delete", api.destroy)
}

type classList struct {
	Search   string
	Classes  []school.Class
	Teachers []school.Teacher
}

type classForm struct {
	Class    school.Class
	Teachers []school.Teacher
}

func (api classAPI) list(ctx echo.Context) error {
	c := ctx.Request().Context()
	filter := searchFilter(ctx)
	classes, err := api.svc.QueryClasses(c, filter, bindOrdering(ctx, core.DBOrdering{Field: "year"}, byName))
	if err != nil {
		return err
	}
	teachers, err := api.svc.QueryTeachers(c, nil, []core.DBOrdering{byName})
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "classes", "Classes", classList{Search: filter.Search, Classes: classes, Teachers: teachers})
}

func (api classAPI) create(ctx echo.Context) error {
	setFormURL(ctx, "/classes")
	var data school.NewClass
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	cl, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Class %q created.", cl.Name))
	return seeOther(ctx, "/classes")
}

func (api classAPI) edit(ctx echo.Context) error {
	c := ctx.Request().Context()
	id, err := paramID(ctx, school.ErrClassNotFound)
	if err != nil {
		return err
	}
	cl, err := api.svc.GetClass(c, id)
	if err != nil {
		return err
	}
	teachers, err := api.svc.QueryTeachers(c, nil, []core.DBOrdering{byName})
	if err != nil {
		return err
	}
	return render(ctx, http.StatusOK, "class_edit", "Edit class", classForm{Class: cl, Teachers: teachers})
}

func (api classAPI) update(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrClassNotFound)
	if err != nil {
		return err
	}
	setFormURL(ctx, fmt.Sprintf("/classes/%d/edit", id))

	var data school.UpdateClass
	if err := bind(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	cl, err := api.svc.UpdateClass(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, fmt.Sprintf("Class %q updated.", cl.Name))
	return seeOther(ctx, "/classes")
}

func (api classAPI) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, school.ErrClassNotFound)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.DeleteClass(ctx.Request().Context(), actor, id); err != nil {
		return err
	}
	setFlash(ctx, flashSuccess, "Class deleted.")
	return seeOther(ctx, "/classes")
}
