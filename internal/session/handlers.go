package session

import (
	"errors"
	"fmt"

	"backend-trailplan/internal/export"
	"backend-trailplan/internal/itinerary"
	"backend-trailplan/internal/waypoint"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, m *Manager) {
	r.Post("/", func(c *fiber.Ctx) error {
		body := c.Body()
		if len(body) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "gpx file required")
		}
		s, err := m.Load(body, c.Query("name", "route.gpx"), c.QueryBool("force"))
		if err != nil {
			var dense *LowDensityError
			if errors.As(err, &dense) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error":             dense.Error(),
					"density_km_per_pt": dense.KmPerPt,
				})
			}
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(s.State())
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return c.JSON(s.State())
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if !m.Delete(c.Params("id")) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Put("/:id/name", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil || body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		s.Rename(body.Name)
		return c.JSON(s.State())
	})

	r.Post("/:id/waypoints", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		var body struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		wp, err := s.AddWaypoint(body.Lat, body.Lon)
		if err != nil {
			return snapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(wp)
	})

	r.Post("/:id/waypoints/commit", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		wp, committed := s.CommitWaypoint(body.Name, body.Description)
		if !committed {
			return c.JSON(fiber.Map{"committed": false})
		}
		return c.JSON(fiber.Map{"committed": true, "waypoint": wp})
	})

	r.Post("/:id/waypoints/discard", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return c.JSON(fiber.Map{"discarded": s.DiscardWaypoint()})
	})

	r.Put("/:id/waypoints/:wid", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		wp, ok := s.UpdateWaypoint(c.Params("wid"), body.Name, body.Description)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "waypoint not found")
		}
		return c.JSON(wp)
	})

	r.Delete("/:id/waypoints/:wid", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		err := s.RemoveWaypoint(c.Params("wid"), c.QueryBool("confirm"))
		if err != nil {
			var endpoint *EndpointRemovalError
			if errors.As(err, &endpoint) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": endpoint.Error(),
					"role":  endpoint.Role,
				})
			}
			return snapError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/undo", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		changed := s.Undo()
		return c.JSON(fiber.Map{"changed": changed, "state": s.State()})
	})

	r.Post("/:id/redo", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		changed := s.Redo()
		return c.JSON(fiber.Map{"changed": changed, "state": s.State()})
	})

	r.Put("/:id/legs/:wid", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		var params itinerary.LegParams
		if err := c.BodyParser(&params); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := s.SetLegParams(c.Params("wid"), params); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/itinerary", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		var body struct {
			itinerary.Inputs
			Name string `json:"name"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if body.Name != "" {
			s.Rename(body.Name)
		}
		rows, summary, err := s.Itinerary(body.Inputs)
		if err != nil {
			return validationError(c, err)
		}
		return c.JSON(fiber.Map{"summary": summary, "rows": rows})
	})

	r.Get("/:id/gpx", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		filename, data, err := s.ExportGPX()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/gpx+xml")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
		return c.Send(data)
	})

	r.Get("/:id/itinerary.pdf", func(c *fiber.Ctx) error {
		s, ok := m.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		in := itinerary.Inputs{
			GroupSize:  c.QueryInt("group_size"),
			SkillLevel: c.Query("skill_level"),
			StartTime:  c.Query("start_time"),
		}
		rows, summary, err := s.Itinerary(in)
		if err != nil {
			return validationError(c, err)
		}

		// Capture failure is recovered: the document ships without images.
		images, err := export.RenderImages(s.Track(), s.Waypoints())
		if err != nil {
			images = nil
		}

		name := s.Name()
		data, err := export.BuildPDF(export.ItineraryDoc{
			RouteName: name,
			Summary:   summary,
			Rows:      rows,
		}, images)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename(name)))
		return c.Send(data)
	})
}

func snapError(err error) error {
	switch {
	case errors.Is(err, waypoint.ErrNotOnTrack):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, waypoint.ErrPendingExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func validationError(c *fiber.Ctx, err error) error {
	var verr *itinerary.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	}
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
