package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"

	"github.com/nickyhof/BatchDB"
)

// batchdb_init starts an instance storing databases under baseDir with
// the given driver ("sqlite3" or "duckdb"). It returns a handle, or -1.
//
//export batchdb_init
func batchdb_init(baseDir *C.char, driver *C.char) C.int {
	id, err := bridge.open(BatchDB.Config{
		BaseDir: C.GoString(baseDir),
		Driver:  C.GoString(driver),
	})
	if err != nil {
		return -1
	}
	return C.int(id)
}

//export batchdb_shutdown
func batchdb_shutdown(handle C.int) {
	bridge.shutdown(int(handle))
}

//export batchdb_open
func batchdb_open(handle C.int, name *C.char, key *C.char) *C.char {
	return C.CString(string(bridge.openDatabase(int(handle), C.GoString(name), C.GoString(key))))
}

//export batchdb_close
func batchdb_close(handle C.int, name *C.char) *C.char {
	return C.CString(string(bridge.closeDatabase(int(handle), C.GoString(name))))
}

//export batchdb_delete
func batchdb_delete(handle C.int, name *C.char) *C.char {
	return C.CString(string(bridge.deleteDatabase(int(handle), C.GoString(name))))
}

// batchdb_execute runs a JSON batch {"dbargs":{"dbname":...},"executes":[...]}
// and returns the JSON response with one outcome per statement.
//
//export batchdb_execute
func batchdb_execute(handle C.int, request *C.char) *C.char {
	return C.CString(string(bridge.execute(int(handle), []byte(C.GoString(request)))))
}

//export batchdb_echo
func batchdb_echo(value *C.char) *C.char {
	return C.CString(string(replyResponse("echoStringValue", nil, C.GoString(value))))
}

//export batchdb_free
func batchdb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func main() {}
