package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"title":      &graphql.Field{Type: graphql.String},
			"started_at": &graphql.Field{Type: graphql.DateTime},
			"ended_at":   &graphql.Field{Type: graphql.DateTime},
			"created_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	fixType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationFix",
		Fields: graphql.Fields{
			"trip_id":   &graphql.Field{Type: graphql.String},
			"point":     &graphql.Field{Type: geoPointType},
			"time":      &graphql.Field{Type: graphql.DateTime},
			"speed_mps": &graphql.Field{Type: graphql.Float},
			"activity":  &graphql.Field{Type: graphql.String},
		},
	})

	photoType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Photo",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"trip_id":       &graphql.Field{Type: graphql.String},
			"time":          &graphql.Field{Type: graphql.DateTime},
			"location":      &graphql.Field{Type: geoPointType},
			"quality_score": &graphql.Field{Type: graphql.Float},
			"is_junk":       &graphql.Field{Type: graphql.Boolean},
		},
	})

	clusterType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PhotoCluster",
		Fields: graphql.Fields{
			"id":               &graphql.Field{Type: graphql.String},
			"trip_id":          &graphql.Field{Type: graphql.String},
			"photos":           &graphql.Field{Type: graphql.NewList(photoType)},
			"center_location":  &graphql.Field{Type: geoPointType},
			"start_time":       &graphql.Field{Type: graphql.DateTime},
			"end_time":         &graphql.Field{Type: graphql.DateTime},
			"assigned_step_id": &graphql.Field{Type: graphql.String},
		},
	})

	dwellType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DwellEvent",
		Fields: graphql.Fields{
			"trip_id":    &graphql.Field{Type: graphql.String},
			"center":     &graphql.Field{Type: geoPointType},
			"started_at": &graphql.Field{Type: graphql.DateTime},
			"duration":   &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"trips": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "List all journal trips",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trips.List(p.Context)
				},
			},
			"trip": &graphql.Field{
				Type:        tripType,
				Description: "Get a trip by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trips.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"tripFixes": &graphql.Field{
				Type:        graphql.NewList(fixType),
				Description: "Recorded location fixes for a trip",
				Args: graphql.FieldConfigArgument{
					"trip_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1000},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tripID := p.Args["trip_id"].(string)
					limit := p.Args["limit"].(int)
					return deps.Fixes.ListByTrip(p.Context, tripID,
						time.Time{}, time.Now().UTC(), limit)
				},
			},
			"tripClusters": &graphql.Field{
				Type:        graphql.NewList(clusterType),
				Description: "Curated photo clusters for a trip",
				Args: graphql.FieldConfigArgument{
					"trip_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Curation.ClustersByTrip(p.Context, p.Args["trip_id"].(string))
				},
			},
			"tripDwells": &graphql.Field{
				Type:        graphql.NewList(dwellType),
				Description: "Confirmed dwell events for a trip",
				Args: graphql.FieldConfigArgument{
					"trip_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Dwells.ListByTrip(p.Context, p.Args["trip_id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
