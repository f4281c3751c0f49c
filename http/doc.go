// Package http provides request and response helpers for handlers mounted on
// a routing.Router.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	var payload struct {
//	    Name string `json:"name"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
//	page := req.Query("page", "1")
//	id   := req.RouteParam("id")
//
//	// The scope the route was activated with, and its logger
//	scope, _ := req.Scope()
//	req.Logger().Info("payload bound")
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res.Success(user)                       // 200 {"data": user}
//	res.Created(user)                       // 201 {"data": user}
//	res.Error(http.StatusConflict, "taken") // {"message": "taken"}
//	res.NotFound("No such user.")           // 404
//	res.NoContent()                         // 204
//
//	svc, err := container.Get(scope, ServiceKey)
//	if err != nil {
//	    res.Fail(req.Logger(), err) // logs err, maps it to a status
//	    return
//	}
package http
