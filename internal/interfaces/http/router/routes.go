package router

import (
	"github.com/gin-gonic/gin"

	"github.com/erp/fulfillment/internal/interfaces/http/handler"
)

// Handlers groups every HTTP handler the API serves
type Handlers struct {
	Inventory     *handler.InventoryHandler
	StockTake     *handler.StockTakeHandler
	Order         *handler.OrderHandler
	PurchaseOrder *handler.PurchaseOrderHandler
	Shipping      *handler.ShippingHandler
	Import        *handler.ImportHandler
	System        *handler.SystemHandler

	// ImportLimit guards the CSV upload routes when set
	ImportLimit gin.HandlerFunc
}

// FulfillmentGroups builds the inventory, trade, shipping and system
// route groups. Nil handlers leave their routes out.
func FulfillmentGroups(h Handlers) []*DomainGroup {
	inventoryRoutes := NewDomainGroup("inventory", "/inventory")
	if h.Inventory != nil {
		inventoryRoutes.
			POST("/warehouse-products", h.Inventory.EnsureWarehouseProduct).
			GET("/warehouse-products/:id", h.Inventory.GetWarehouseProduct).
			GET("/warehouse-products/:id/batches", h.Inventory.ListBatches).
			GET("/warehouse-products/:id/history", h.Inventory.History).
			GET("/warehouse-products/:id/suggest", h.Inventory.SuggestBatch).
			GET("/warehouse-products/:id/verify", h.Inventory.VerifyLedger).
			POST("/batches", h.Inventory.UpsertBatch).
			PUT("/batches/:id/pick-priority", h.Inventory.SetPickPriority).
			POST("/deduct", h.Inventory.Deduct).
			POST("/deduct-batch", h.Inventory.DeductFromBatch).
			POST("/adjust", h.Inventory.Adjust)
	}
	if h.StockTake != nil {
		inventoryRoutes.
			POST("/stock-takes", h.StockTake.Create).
			GET("/stock-takes/:id", h.StockTake.Get).
			POST("/stock-takes/:id/items", h.StockTake.AddItem).
			POST("/stock-takes/:id/complete", h.StockTake.Complete).
			POST("/stock-takes/:id/evaluate", h.StockTake.Evaluate).
			GET("/stock-takes/:id/discrepancies", h.StockTake.ListDiscrepancies).
			POST("/discrepancies/:id/resolve", h.StockTake.ResolveDiscrepancy).
			POST("/erp-checks", h.StockTake.CreateErpCheck).
			POST("/erp-checks/:id/evaluate", h.StockTake.EvaluateErpCheck).
			GET("/erp-checks/:id/discrepancies", h.StockTake.ListErpDiscrepancies)
	}

	tradeRoutes := NewDomainGroup("trade", "/trade")
	if h.Order != nil {
		tradeRoutes.
			POST("/orders", h.Order.Create).
			GET("/orders", h.Order.List).
			GET("/orders/:id", h.Order.Get).
			POST("/orders/:id/confirm", h.Order.Confirm).
			POST("/orders/:id/suggestions", h.Order.Suggestions).
			POST("/orders/:id/parcels", h.Order.Pack).
			GET("/orders/:id/parcels", h.Order.ListParcels).
			POST("/orders/:id/removals", h.Order.RemoveItem).
			POST("/orders/:id/complete", h.Order.Complete).
			POST("/orders/:id/cancel", h.Order.Cancel).
			POST("/orders/:id/bill", h.Order.MarkBilled)
	}
	if h.PurchaseOrder != nil {
		tradeRoutes.
			POST("/purchase-orders", h.PurchaseOrder.Create).
			GET("/purchase-orders/:id", h.PurchaseOrder.Get).
			POST("/purchase-orders/:id/receive", h.PurchaseOrder.Receive)
	}
	if h.Import != nil {
		inventoryRoutes.POST("/imports/batches", limited(h.ImportLimit, h.Import.ImportBatches)...)
		tradeRoutes.POST("/imports/orders", limited(h.ImportLimit, h.Import.ImportOrders)...)
	}

	shippingRoutes := NewDomainGroup("shipping", "/shipping")
	if h.Shipping != nil {
		shippingRoutes.
			POST("/tracking-events", h.Shipping.ApplyTrackingEvents).
			GET("/tracking/:tracking_number/events", h.Shipping.TrackingHistory).
			POST("/parcels/:id/tracking-number", h.Shipping.AssignTrackingNumber).
			POST("/stale-parcels/flag", h.Shipping.FlagStaleParcels).
			POST("/invoices", h.Shipping.RecordInvoiceLines).
			POST("/invoices/import", limited(h.ImportLimit, h.Shipping.ImportInvoices)...).
			GET("/costs/:tracking_number", h.Shipping.CostHistory)
	}

	systemRoutes := NewDomainGroup("system", "/system")
	if h.System != nil {
		systemRoutes.
			GET("/ping", h.System.Ping).
			GET("/info", h.System.GetSystemInfo).
			GET("/ready", h.System.Ready)
	}

	return []*DomainGroup{inventoryRoutes, tradeRoutes, shippingRoutes, systemRoutes}
}

func limited(limit, h gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{limit, h}
}
