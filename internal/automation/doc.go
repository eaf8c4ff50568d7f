// Package automation provides the Scene Engine and the read-only schedule
// listing for the smart home backend.
//
// A scene stores a JSON object mapping device ids to partial device
// patches. Activation applies every patch in one transaction with a
// savepoint per device:
//
//	BEGIN
//	  SAVEPOINT scene_device   -- device 1: read, conditional state, fields
//	  RELEASE scene_device
//	  SAVEPOINT scene_device   -- device 9: not found
//	  ROLLBACK TO scene_device
//	  RELEASE scene_device
//	COMMIT
//
// Failures are reported per device in the activation results instead of
// aborting the scene. After commit the engine announces the changed
// devices so listeners (WebSocket, MQTT, InfluxDB) see the fresh rows.
//
// # Usage
//
//	engine := automation.NewEngine(db, automation.NewSQLiteRepository(db), store, log)
//	result, err := engine.Activate(ctx, 1)
//	if errors.Is(err, automation.ErrSceneNotFound) {
//	    // 404
//	}
package automation
