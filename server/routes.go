package server

import "net/http"

func (s *Server) initRoutes() {
	html := func(h http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.HTMLMiddleWare(mw...)...)
	}
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return html(h, s.RequireAdmin())
	}

	// STOREFRONT
	s.RegisterRouteFunc("GET "+RouteHome+"{$}", html(s.HomeHandler()))
	s.RegisterRouteFunc("GET "+RouteStorefront, html(s.StorefrontHandler()))
	s.RegisterRouteFunc("GET "+RouteProduct, html(s.ProductHandler()))
	s.RegisterRouteFunc("GET "+RouteSearch, ChainMiddleware(s.SearchHandler(), s.APIMiddleware()...))

	// CART
	s.RegisterRouteFunc("POST "+RouteCartAdd, html(s.CartAddHandler()))
	s.RegisterRouteFunc("POST "+RouteCartRemove, html(s.CartRemoveHandler()))
	s.RegisterRouteFunc("POST "+RouteCartClear, html(s.CartClearHandler()))
	s.RegisterRouteFunc("POST "+RouteCartToggle, html(s.CartToggleHandler()))

	// CHECKOUT
	s.RegisterRouteFunc("GET "+RouteCheckout, html(s.CheckoutPageHandler()))
	s.RegisterRouteFunc("POST "+RouteEstimate, html(s.EstimateShippingHandler()))
	s.RegisterRouteFunc("POST "+RoutePayByTransfer, html(s.PayByTransferHandler(), s.RequireLogin()))
	s.RegisterRouteFunc("POST "+RoutePayHosted, html(s.PayHostedHandler(), s.RequireLogin()))
	s.RegisterRouteFunc("GET "+RoutePaymentTransfer, html(s.PaymentTransferHandler()))
	s.RegisterRouteFunc("GET "+RoutePaymentSuccess, html(s.PaymentResultHandler(paymentSuccess)))
	s.RegisterRouteFunc("GET "+RoutePaymentFailure, html(s.PaymentResultHandler(paymentFailure)))
	s.RegisterRouteFunc("GET "+RoutePaymentPending, html(s.PaymentResultHandler(paymentPending)))

	// ACCOUNT
	s.RegisterRouteFunc("GET "+RouteLogin, html(s.LoginPageHandler()))
	s.RegisterRouteFunc("POST "+RouteLogin, html(s.LoginSubmissionHandler()))
	s.RegisterRouteFunc("GET "+RouteRegister, html(s.RegisterPageHandler()))
	s.RegisterRouteFunc("POST "+RouteRegister, html(s.RegisterSubmissionHandler()))
	s.RegisterRouteFunc("POST "+RouteLogout, html(s.LogoutHandler()))
	s.RegisterRouteFunc("GET "+RouteMyOrders, html(s.MyOrdersHandler(), s.RequireLogin()))

	// Admin routes (UI gating only, the backend authorises every call)
	s.RegisterRouteFunc("GET "+RouteAdminDashboard, admin(s.AdminDashboardHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminProducts, admin(s.AdminProductsHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminProducts, admin(s.AdminProductCreateHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminProductNew, admin(s.AdminProductFormHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminProductEdit, admin(s.AdminProductFormHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminProductUpdate, admin(s.AdminProductUpdateHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminProductDelete, admin(s.AdminProductDeleteHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminCategories, admin(s.AdminCategoriesHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminCategories, admin(s.AdminCategoryCreateHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminCategoryDelete, admin(s.AdminCategoryDeleteHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminCarousel, admin(s.AdminCarouselHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminCarouselUpload, admin(s.AdminCarouselUploadHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminCarouselOrder, admin(s.AdminCarouselOrderHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminCarouselHide, admin(s.AdminCarouselDeactivateHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminCarouselDelete, admin(s.AdminCarouselDeleteHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminSales, admin(s.AdminSalesHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminCreateAdmin, admin(s.AdminCreateAdminPageHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminCreateAdmin, admin(s.AdminCreateAdminHandler()))
	s.RegisterRouteFunc("GET "+RouteAdminIntegrations, admin(s.AdminIntegrationsHandler()))
	s.RegisterRouteFunc("POST "+RouteAdminIntegrationsZecat, admin(s.AdminZecatSyncHandler()))

	static := s.StaticMiddleware()
	s.RegisterRouteFunc("GET "+RouteStaticCSS, ChainMiddleware(s.AssetHandler("css"), static...))
	s.RegisterRouteFunc("GET "+RouteStaticJS, ChainMiddleware(s.AssetHandler("js"), static...))
	s.RegisterRouteFunc("GET "+RouteStaticImages, ChainMiddleware(s.AssetHandler("images"), static...))
}
