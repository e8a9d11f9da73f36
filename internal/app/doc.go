// Package app provides the application service layer.
//
// The Service is the sync controller: every publish-state change commits through the
// DishRepository first and only then is handed to the Broadcaster. Changes touching the
// same dish id are serialized in-process from commit until the broadcast is enqueued, so
// live channels see one id's updates in commit order.
package app
