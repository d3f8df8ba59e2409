package internal

import (
	"archivist/internal/controllers"
	"archivist/internal/providers"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/versions", http.HandlerFunc(apiController.GetVersions))
	routers.Get("/versions/{id}", http.HandlerFunc(apiController.GetVersion))
	routers.Get("/versions/{id}/content", http.HandlerFunc(apiController.GetVersionContent))
	routers.Get("/latest", http.HandlerFunc(apiController.GetLatest))
	routers.Get("/count", http.HandlerFunc(apiController.GetCount))
	return routers
}
