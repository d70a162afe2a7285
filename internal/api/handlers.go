// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"html"

	"github.com/gofiber/fiber/v2"

	apperrors "hosting-assessment/internal/common/errors"
	"hosting-assessment/internal/common/validation"
	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
	"hosting-assessment/internal/search"
)

type scoreRequest struct {
	Answers scoring.AnswerSet `json:"answers"`
}

type submitRequest struct {
	AgencyInfo models.AgencyInfo `json:"agency_info"`
	Answers    scoring.AnswerSet `json:"answers"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

// decode validates the raw body against the named schema before unmarshalling it.
func decode(c *fiber.Ctx, schema string, out interface{}) error {
	body := c.Body()
	result, err := validation.ValidateJSON(schema, body)
	if err != nil {
		return err
	}
	if verr := result.AsError(); verr != nil {
		return verr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewValidationError("invalid request body: "+err.Error(), nil, []string{"(root)"})
	}
	return nil
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "healthy",
		"catalog_version": s.catalog.Version,
	})
}

func (s *Server) questions(c *fiber.Ctx) error {
	return c.JSON(s.catalog)
}

// score runs the engine without persisting. ?format=text or ?format=markdown returns the
// rendered report instead of JSON.
func (s *Server) score(c *fiber.Ctx) error {
	var req scoreRequest
	if err := decode(c, validation.SchemaScore, &req); err != nil {
		return err
	}
	result, err := s.service.Score(req.Answers)
	if err != nil {
		return err
	}

	switch c.Query("format") {
	case "text":
		c.Type("txt", "utf-8")
		return c.SendString(s.renderer.Text(result))
	case "markdown":
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		return c.SendString(s.renderer.Markdown(result))
	}
	return c.JSON(result)
}

func (s *Server) submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := decode(c, validation.SchemaSubmit, &req); err != nil {
		return err
	}
	outcome, err := s.service.Submit(c.UserContext(), req.AgencyInfo, req.Answers)
	if err != nil {
		return err
	}
	c.Location("/api/v1/assessments/" + outcome.Assessment.ID)
	return c.Status(fiber.StatusCreated).JSON(outcome)
}

func (s *Server) dashboard(c *fiber.Ctx) error {
	board, err := s.service.Dashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(board)
}

func (s *Server) search(c *fiber.Ctx) error {
	if s.searcher == nil {
		return apperrors.NewSearchUnavailableError()
	}

	q := search.Query{
		Status:         c.Query("status"),
		Recommendation: c.Query("recommendation"),
		Agency:         c.Query("agency"),
		From:           c.QueryInt("from", 0),
		Size:           c.QueryInt("size", 25),
	}
	var invalid []string
	if q.Status != "" {
		switch models.Status(q.Status) {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
		default:
			invalid = append(invalid, "status")
		}
	}
	if q.Recommendation != "" && !scoring.Platform(q.Recommendation).Valid() {
		invalid = append(invalid, "recommendation")
	}
	if len(invalid) > 0 {
		return apperrors.NewValidationError(fmt.Sprintf("invalid search filters: %v", invalid), nil, invalid)
	}

	result, err := s.searcher.Search(c.UserContext(), q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"total":       result.Total,
		"assessments": result.Assessments,
	})
}

func (s *Server) get(c *fiber.Ctx) error {
	record, err := s.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(record)
}

func (s *Server) review(c *fiber.Ctx) error {
	var req reviewRequest
	if err := decode(c, validation.SchemaReview, &req); err != nil {
		return err
	}
	outcome, err := s.service.Review(c.UserContext(), c.Params("id"), req.Decision, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(outcome)
}

func (s *Server) reviewPage(c *fiber.Ctx) error {
	record, err := s.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	fragment, err := s.renderer.RecordHTML(record)
	if err != nil {
		return err
	}
	if record.Status == models.StatusPending {
		fragment += reviewFormHTML(record.ID)
	}
	c.Type("html", "utf-8")
	return c.SendString(fragment)
}

// reviewForm accepts the decision posted from the review page and redirects back to it.
func (s *Server) reviewForm(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.service.Review(c.UserContext(), id, c.FormValue("decision"), c.FormValue("notes")); err != nil {
		return err
	}
	return c.Redirect("/review/"+id, fiber.StatusSeeOther)
}

func reviewFormHTML(id string) string {
	return fmt.Sprintf(`<form method="post" action="/review/%s">
<label for="notes">Notes</label>
<textarea id="notes" name="notes" rows="4"></textarea>
<button type="submit" name="decision" value="approved">Approve</button>
<button type="submit" name="decision" value="rejected">Reject</button>
</form>
`, html.EscapeString(id))
}
